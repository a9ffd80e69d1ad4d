package xprocheader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	crossprocess "github.com/reddit/crossprocess.go"
	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/configbp"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/set"
)

const (
	defaultTimeout = time.Second
	maxHTTPBody    = 4096
)

type probeArgs struct {
	url            string
	crossProcessID string
	timeout        time.Duration
}

func newProbeCmd(opts *options) *cobra.Command {
	var args probeArgs
	cmd := &cobra.Command{
		Use:   "probe URL",
		Short: "Send a CAT request to URL and print the decoded app data of the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			if err := opts.requireKey(); err != nil {
				return err
			}
			args.url = positional[0]
			fields, err := probe(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), fields)
		},
	}
	cmd.Flags().StringVar(
		&args.crossProcessID,
		"id",
		"1#1",
		`The cross process id to send, in "<account>#<app>" format.`,
	)
	cmd.Flags().DurationVar(
		&args.timeout,
		"timeout",
		defaultTimeout,
		"The timeout for the request.",
	)
	return cmd
}

// probe sends one request carrying the CAT headers of a fresh transaction and
// decodes the app data header of the response.
func probe(ctx context.Context, args probeArgs, opts *options) (map[string]interface{}, error) {
	trusted := trustedSet(opts)
	if trusted == nil {
		trusted = make(set.Int64)
	}
	// The server only answers callers it trusts, the probe trusts itself.
	trusted.Add(int64(cat.AccountIDFromCrossProcessID(args.crossProcessID)))

	var cfg crossprocess.Config
	cfg.AppName = "xprocheader"
	cfg.CrossApplicationTracer.Enabled = true
	cfg.ConnectReply = crossprocess.ConnectReplyConfig{
		EncodingKey:       opts.key,
		CrossProcessID:    args.crossProcessID,
		TrustedAccountIDs: configbp.Int64Set(trusted),
	}
	agent, err := crossprocess.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid probe arguments: %w", err)
	}
	defer agent.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, args.timeout)
	defer cancel()
	t := agent.NewTransaction("OtherTransaction/Go/xprocheader", time.Time{})
	ctx = httpbp.ContextWithTransaction(ctx, t)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	resp, err := agent.Client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	if _, err := io.Copy(io.Discard, io.LimitReader(resp.Body, maxHTTPBody)); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	value := resp.Header.Get(cat.AppDataHeader)
	if value == "" {
		return nil, fmt.Errorf("no %s header in the response, status %d", cat.AppDataHeader, resp.StatusCode)
	}
	return decodeAppData(value, opts)
}
