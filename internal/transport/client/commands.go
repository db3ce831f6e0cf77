package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/martinhantha/kutt/internal/domain"
)

// Commands provides command-line operations for the client
type Commands struct {
	client *Client
	out    io.Writer
}

// NewCommands creates a new Commands instance that prints to out
func NewCommands(client *Client, out io.Writer) *Commands {
	return &Commands{
		client: client,
		out:    out,
	}
}

// Create creates a link and displays the result
func (c *Commands) Create(ctx context.Context, target, address string) error {
	link, err := c.client.CreateLink(ctx, domain.CreateLinkRequest{Address: address, Target: target})
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Link created:\n")
	fmt.Fprintf(c.out, "ID: %d\n", link.ID)
	fmt.Fprintf(c.out, "Address: %s\n", link.Address)
	fmt.Fprintf(c.out, "Target: %s\n", link.Target)
	fmt.Fprintf(c.out, "Created At: %s\n", link.CreatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

// Delete removes a link
func (c *Commands) Delete(ctx context.Context, id int64) error {
	err := c.client.DeleteLink(ctx, id)
	if errors.Is(err, ErrNotFound) {
		fmt.Fprintf(c.out, "Link %d not found\n", id)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Link %d deleted successfully\n", id)
	return nil
}

// BatchDelete removes every listed link
func (c *Commands) BatchDelete(ctx context.Context, ids []int64) error {
	removed, err := c.client.BatchDelete(ctx, ids)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "Deleted %d of %d links\n", removed, len(ids))
	return nil
}

// List displays a page of links in a table format
func (c *Commands) List(ctx context.Context, skip, limit uint64, search string) error {
	page, err := c.client.ListLinks(ctx, skip, limit, search)
	if err != nil {
		return err
	}

	if len(page.Data) == 0 {
		fmt.Fprintln(c.out, "No links found")
		return nil
	}

	fmt.Fprintf(c.out, "%-10s %-15s %-8s %-50s %s\n", "Target ID", "Address", "Language", "Target", "Created At")
	fmt.Fprintln(c.out, strings.Repeat("-", 110))

	for _, row := range page.Data {
		address := "-"
		if row.Address != nil {
			address = *row.Address
		}
		language := "-"
		if row.Language != nil {
			language = *row.Language
		}

		target := row.Target.Target
		if len(target) > 50 {
			target = target[:47] + "..."
		}

		fmt.Fprintf(c.out, "%-10d %-15s %-8s %-50s %s\n",
			row.ID,
			address,
			language,
			target,
			row.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}

	fmt.Fprintf(c.out, "Showing %d-%d of %d links\n", page.Skip+1, page.Skip+uint64(len(page.Data)), page.Total)
	return nil
}
