package main

import (
	"context"
	"fmt"

	"github.com/Sternrassler/item-feed/pkg/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	source      sourceOptions
	addr        string
	maxPageSize int
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a listing over the items HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	opts.source.addFlags(cmd.Flags(), "memory, redis")
	cmd.Flags().StringVar(&opts.addr, "addr", ":"+getEnv("PORT", "8080"), "listen address")
	cmd.Flags().IntVar(&opts.maxPageSize, "max-page-size", getEnvInt("ITEMFEED_MAX_PAGE_SIZE", server.DefaultConfig().MaxPageSize), "largest page served")

	return cmd
}

func buildServer(ctx context.Context, opts *serveOptions) (*server.Server, func() error, error) {
	if opts.source.kind == sourceHTTP {
		return nil, nil, fmt.Errorf("serve does not support the %q source", sourceHTTP)
	}

	src, err := openSource(ctx, opts.source)
	if err != nil {
		return nil, nil, err
	}

	cfg := server.DefaultConfig()
	cfg.Addr = opts.addr
	cfg.MaxPageSize = opts.maxPageSize

	srv, err := server.New(src.pages, src.details, cfg)
	if err != nil {
		src.close()
		return nil, nil, err
	}
	return srv, src.close, nil
}

func runServe(ctx context.Context, opts *serveOptions) error {
	srv, closeSource, err := buildServer(ctx, opts)
	if err != nil {
		return err
	}
	defer closeSource()

	return srv.ListenAndServe(ctx)
}
