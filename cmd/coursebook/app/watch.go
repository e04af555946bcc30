package app

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coursebook/internal/contract"
	"coursebook/internal/notify"
)

type Watch struct {
	cmd *cobra.Command

	mainopts    *Options
	server      string
	descendants bool
}

func NewWatch(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [<uri>] <options>",
		Short: "print change notifications from a running server",
		Long: `
Connects to the change stream of "coursebook serve" and prints one line
per notification until interrupted. The uri defaults to the course
collection.
`,
		Args: cobra.MaximumNArgs(1),
	}

	c := &Watch{
		cmd:      cmd,
		mainopts: opts,
	}
	c.cmd.RunE = func(cmd *cobra.Command, args []string) error { return c.Run(cmd.Context(), args) }
	flags := cmd.Flags()
	flags.StringVarP(&c.server, "server", "s", "", "server address (default from config)")
	flags.BoolVarP(&c.descendants, "descendants", "D", true, "include changes below the uri")
	return cmd
}

func (c *Watch) Run(ctx context.Context, args []string) error {
	uri := contract.CollectionURI
	if len(args) == 1 {
		uri = args[0]
	}

	server := c.server
	if server == "" {
		cfg, err := c.mainopts.LoadConfig()
		if err != nil {
			return err
		}
		server = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return Consume(ctx, c.cmd.OutOrStdout(), eventsURL(server, uri, c.descendants))
}

// eventsURL builds the stream address from a listen address or base URL
func eventsURL(server, uri string, descendants bool) string {
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		if strings.HasPrefix(server, ":") {
			server = "localhost" + server
		}
		server = "http://" + server
	}
	q := url.Values{}
	q.Set("uri", uri)
	q.Set("descendants", strconv.FormatBool(descendants))
	return strings.TrimSuffix(server, "/") + "/events?" + q.Encode()
}

// Consume reads the change stream at address and writes one line per
// change to w until ctx ends or the server closes the stream
func Consume(ctx context.Context, w io.Writer, address string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("watch failed with status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var change notify.Change
		if err := json.Unmarshal([]byte(data), &change); err != nil {
			return fmt.Errorf("bad event %q: %w", data, err)
		}
		fmt.Fprintf(w, "%s changed %s\n", change.At.Format(time.RFC3339), change.URI)
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
