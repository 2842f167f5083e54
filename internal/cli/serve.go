package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/devrickard/testcascade/internal/transport/httpapi"
)

func newServeCmd(deps Dependencies) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the thin HTTP ingress (/upload, /generate-tests, /execute-tests)",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := httpapi.NewServer(deps.OpenAPI, deps.Generation, deps.Extractor, deps.Coordinator, deps.UploadDir)
			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return http.ListenAndServe(addr, server.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "address to listen on")
	return cmd
}
