package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/halstore/pkg/datastore"
	"github.com/conduit-lang/halstore/pkg/model"
	"github.com/conduit-lang/halstore/pkg/relationships"
	"github.com/conduit-lang/halstore/pkg/schema"
	"github.com/conduit-lang/halstore/pkg/transport"
)

// readFlags are the flags shared by get and list
type readFlags struct {
	include           []string
	params            map[string]string
	headers           map[string]string
	subsequentParams  map[string]string
	subsequentHeaders map[string]string
	selectBy          string
	output            string
	url               string
}

func (f *readFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringSliceVarP(&f.include, "include", "i", nil, "relationship paths to resolve, e.g. car.maker (repeatable)")
	flags.StringToStringVarP(&f.params, "param", "p", nil, "query parameter for the main request (key=value)")
	flags.StringToStringVarP(&f.headers, "header", "H", nil, "header for the main request (key=value)")
	flags.StringToStringVar(&f.subsequentParams, "include-param", nil, "query parameter for relationship fetches (key=value)")
	flags.StringToStringVar(&f.subsequentHeaders, "include-header", nil, "header for relationship fetches (key=value)")
	flags.StringVar(&f.selectBy, "select-by", "", "attribute holding the model type of polymorphic resources")
	flags.StringVarP(&f.output, "output", "o", FormatJSON, "output format: json or table")
	flags.StringVar(&f.url, "url", "", "fetch this URL instead of the model endpoint")
}

func (f *readFlags) options(registry *schema.Registry, declared *schema.ModelSchema) (*datastore.Options, error) {
	if f.output != FormatJSON && f.output != FormatTable {
		return nil, fmt.Errorf("unsupported output format: %s (supported: json, table)", f.output)
	}

	opts := &datastore.Options{
		Include: relationships.Paths(f.include...),
	}
	if len(f.params) > 0 || len(f.headers) > 0 {
		opts.Main = &transport.RequestOptions{Params: f.params, Headers: f.headers}
	}
	if len(f.subsequentParams) > 0 || len(f.subsequentHeaders) > 0 {
		opts.Subsequent = &transport.RequestOptions{Params: f.subsequentParams, Headers: f.subsequentHeaders}
	}
	if f.selectBy != "" {
		opts.Selector = registry.SelectByAttribute(f.selectBy, declared)
	}
	return opts, nil
}

// NewGetCommand creates the get command
func NewGetCommand(global *globalOptions) *cobra.Command {
	flags := &readFlags{}

	cmd := &cobra.Command{
		Use:   "get TYPE [ID]",
		Short: "Fetch one model and resolve its relationships",
		Long: `Fetch a single model from hostURL/endpoint/ID, or from --url, and print it with
every relationship requested through --include.

Relationship paths are dot-delimited. Embedded relations are materialized without
any request; linked relations are fetched, siblings concurrently.`,
		Example: `  # Fetch a user
  halctl get user 1

  # Resolve the user's car and the car's maker
  halctl get user 1 --include car.maker

  # Send a header with the main request only
  halctl get user 1 -H Accept-Language=de --include car`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && flags.url == "" {
				return fmt.Errorf("an ID or --url is required")
			}

			s, err := openSession(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer s.Close()

			declared, err := s.schemaFor(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options(s.registry, declared)
			if err != nil {
				return err
			}

			var m *model.Model
			if flags.url != "" {
				m, err = s.store.FetchModelWithSchema(cmd.Context(), declared, flags.url, opts)
			} else {
				m, err = s.store.FindOne(cmd.Context(), declared.Type(), args[1], opts)
			}
			if err != nil {
				return err
			}

			rendered := render(m, opts.Include).(*renderedModel)
			if flags.output == FormatTable {
				writeModelTable(cmd.OutOrStdout(), rendered, global.noColor)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), rendered)
		},
	}

	flags.register(cmd)
	return cmd
}

// NewListCommand creates the list command
func NewListCommand(global *globalOptions) *cobra.Command {
	var (
		flags   = &readFlags{}
		page    int
		size    int
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "list TYPE",
		Short: "Fetch a collection",
		Long: `Fetch the collection endpoint of a model type, or --url, and print its items.

Query parameters are sorted before the request is sent, so the same parameters in
any order share one cache entry.`,
		Example: `  # First page of users
  halctl list user --page 0 --size 20

  # As a table with selected columns
  halctl list user -o table --columns name,email`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if page >= 0 {
				flags.params = withParam(flags.params, "page", strconv.Itoa(page))
			}
			if size > 0 {
				flags.params = withParam(flags.params, "size", strconv.Itoa(size))
			}

			s, err := openSession(cmd.Context(), global)
			if err != nil {
				return err
			}
			defer s.Close()

			declared, err := s.schemaFor(args[0])
			if err != nil {
				return err
			}
			opts, err := flags.options(s.registry, declared)
			if err != nil {
				return err
			}

			var doc *model.Document
			if flags.url != "" {
				doc, err = s.store.FetchDocumentWithSchema(cmd.Context(), declared, flags.url, opts)
			} else {
				doc, err = s.store.Find(cmd.Context(), declared.Type(), opts)
			}
			if err != nil {
				return err
			}

			rendered := render(doc, opts.Include).(*renderedDocument)
			if flags.output == FormatTable {
				if len(columns) == 0 {
					columns = attributeNames(declared)
				}
				writeDocumentTable(cmd.OutOrStdout(), rendered, columns, global.noColor)
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), rendered)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&page, "page", -1, "page number, sent as the page parameter")
	cmd.Flags().IntVar(&size, "size", 0, "page size, sent as the size parameter")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "attributes shown by the table output (default: all)")
	return cmd
}

func withParam(params map[string]string, key, value string) map[string]string {
	if params == nil {
		params = make(map[string]string)
	}
	if _, set := params[key]; !set {
		params[key] = value
	}
	return params
}

func attributeNames(s *schema.ModelSchema) []string {
	var names []string
	for _, p := range s.PropertiesOfKind(schema.KindAttribute) {
		names = append(names, p.Name)
	}
	return names
}
