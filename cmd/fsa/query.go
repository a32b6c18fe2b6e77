package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

// Output formats
const (
	OutputFormatText = "text"
	OutputFormatYAML = "yaml"
	OutputFormatJSON = "json"
)

// QueryResponse represents the standard query response format from the status server
type QueryResponse struct {
	Data      json.RawMessage `json:"data"`
	Generated time.Time       `json:"generated"`
}

// ErrorResponse represents an error response from the status server
type ErrorResponse struct {
	Error string `json:"error"`
}

// OperationOutput is the printed form of a journaled operation.
type OperationOutput struct {
	OperationID     string             `yaml:"operation_id" json:"operation_id"`
	Flow            string             `yaml:"flow" json:"flow"`
	Status          string             `yaml:"status" json:"status"`
	Instruction     string             `yaml:"instruction,omitempty" json:"instruction,omitempty"`
	LedgerTxHash    string             `yaml:"ledger_tx_hash,omitempty" json:"ledger_tx_hash,omitempty"`
	ChainTxHash     string             `yaml:"chain_tx_hash,omitempty" json:"chain_tx_hash,omitempty"`
	PersonalAccount string             `yaml:"personal_account,omitempty" json:"personal_account,omitempty"`
	Error           string             `yaml:"error,omitempty" json:"error,omitempty"`
	CreatedAt       time.Time          `yaml:"created_at" json:"created_at"`
	UpdatedAt       time.Time          `yaml:"updated_at" json:"updated_at"`
	Transitions     []TransitionOutput `yaml:"transitions,omitempty" json:"transitions,omitempty"`
}

type TransitionOutput struct {
	Status string                 `yaml:"status" json:"status"`
	At     time.Time              `yaml:"at" json:"at"`
	Detail map[string]interface{} `yaml:"detail,omitempty" json:"detail,omitempty"`
}

// OperationsOutput wraps query results with the server timestamp.
type OperationsOutput struct {
	Operation  *OperationOutput  `yaml:"operation,omitempty" json:"operation,omitempty"`
	Operations []OperationOutput `yaml:"operations,omitempty" json:"operations,omitempty"`
	Generated  time.Time         `yaml:"generated" json:"generated"`
}

type CacheEntryOutput struct {
	Contract string    `yaml:"contract" json:"contract"`
	Key      string    `yaml:"key" json:"key"`
	LoadedAt time.Time `yaml:"loaded_at" json:"loaded_at"`
}

type CacheOutput struct {
	Entries   []CacheEntryOutput `yaml:"entries" json:"entries"`
	Generated time.Time          `yaml:"generated" json:"generated"`
}

// queryOptions are the flags shared by the query subcommands.
type queryOptions struct {
	server       string
	outputFormat string
}

func queryCmd(root *rootOptions) *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:     "query",
		Aliases: []string{"q"},
		Short:   "Query the status server of a running fsa process",
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "status server base URL (default http://localhost:<status port>)")
	cmd.PersistentFlags().StringVarP(&opts.outputFormat, "output", "o", OutputFormatYAML, "Output format (yaml|json)")

	cmd.AddCommand(
		operationsCmd(root, opts),
		operationCmd(root, opts),
		contractCacheCmd(root, opts),
	)
	return cmd
}

func operationsCmd(root *rootOptions, opts *queryOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "operations",
		Short: "List the most recent bridge operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ops []OperationOutput
			generated, err := opts.get(root, fmt.Sprintf("/api/v1/operations?limit=%d", limit), &ops)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), OperationsOutput{Operations: ops, Generated: generated}, opts.outputFormat)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of operations")
	return cmd
}

func operationCmd(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operation <id>",
		Short: "Show one bridge operation with its transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var op OperationOutput
			generated, err := opts.get(root, "/api/v1/operations/"+url.PathEscape(args[0]), &op)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), OperationsOutput{Operation: &op, Generated: generated}, opts.outputFormat)
		},
	}
}

func contractCacheCmd(root *rootOptions, opts *queryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "contract-cache",
		Short: "List the contract metadata loaded by the client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []CacheEntryOutput
			generated, err := opts.get(root, "/api/v1/contract-cache", &entries)
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), CacheOutput{Entries: entries, Generated: generated}, opts.outputFormat)
		},
	}
}

// baseURL resolves the status server address, falling back to the configured port.
func (o *queryOptions) baseURL(root *rootOptions) (string, error) {
	if o.server != "" {
		return strings.TrimSuffix(o.server, "/"), nil
	}
	cfg, err := root.loadConfig()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.StatusServerPort <= 0 {
		return "", fmt.Errorf("status server port is not configured, pass --server or --status-port")
	}
	return fmt.Sprintf("http://localhost:%d", cfg.StatusServerPort), nil
}

// get fetches path and unmarshals the data field of the response into out.
func (o *queryOptions) get(root *rootOptions, path string, out interface{}) (time.Time, error) {
	base, err := o.baseURL(root)
	if err != nil {
		return time.Time{}, err
	}

	resp, err := http.Get(base + path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return time.Time{}, fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return time.Time{}, fmt.Errorf("server error: %s", errResp.Error)
	}

	var queryResp QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&queryResp); err != nil {
		return time.Time{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(queryResp.Data, out); err != nil {
		return time.Time{}, fmt.Errorf("failed to unmarshal response data: %w", err)
	}
	return queryResp.Generated, nil
}

// printOutput prints the output in the specified format
func printOutput(w io.Writer, data interface{}, format string) error {
	switch format {
	case OutputFormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(data)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}
