package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/halstore/pkg/transport"
)

// NewRequestCommand creates the request command
func NewRequestCommand(global *globalOptions) *cobra.Command {
	var (
		data    string
		params  map[string]string
		headers map[string]string
	)

	cmd := &cobra.Command{
		Use:   "request METHOD URL",
		Short: "Send an arbitrary request through the configured transport",
		Long: `Send a GET, POST, PUT, PATCH or DELETE request with the configured default
headers and parameters, and print the status and body. Any other method fails
before a request is made.`,
		Example: `  halctl request POST http://localhost:8080/api/users --data '{"name":"john"}'
  halctl request DELETE http://localhost:8080/api/users/1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer s.Close()

			var body []byte
			if data != "" {
				if !json.Valid([]byte(data)) {
					return fmt.Errorf("--data is not valid JSON")
				}
				body = []byte(data)
			}

			resp, err := s.store.Request(cmd.Context(), args[0], args[1], body,
				&transport.RequestOptions{Params: params, Headers: headers})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d\n", strings.ToUpper(args[0]), resp.StatusCode)
			if location := resp.Location(); location != "" {
				fmt.Fprintf(out, "Location: %s\n", location)
			}
			if etag := resp.ETag(); etag != "" {
				fmt.Fprintf(out, "ETag: %s\n", etag)
			}
			if len(resp.Body) == 0 {
				return nil
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, resp.Body, "", "  "); err != nil {
				fmt.Fprintf(out, "\n%s\n", resp.Body)
				return nil
			}
			fmt.Fprintf(out, "\n%s\n", pretty.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "query parameter (key=value)")
	cmd.Flags().StringToStringVarP(&headers, "header", "H", nil, "request header (key=value)")
	return cmd
}
