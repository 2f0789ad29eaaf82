package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/restbind/restbind/endpoint"
)

// opsCommand returns the 'ops' subcommand listing the descriptor's operations.
func opsCommand() *cli.Command {
	return &cli.Command{
		Name:   "ops",
		Usage:  "List operations available in the configured descriptor",
		Action: opsAction,
	}
}

// callCommand returns the 'call' subcommand invoking a single operation.
func callCommand() *cli.Command {
	return &cli.Command{
		Name:      "call",
		Usage:     "Invoke an operation from the configured descriptor",
		ArgsUsage: "<operation-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "path",
				Usage: "path argument as name=value (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "query",
				Usage: "query argument as name=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "body",
				Usage: "JSON request body, or @file to read from a file",
			},
		},
		Action: callAction,
	}
}

func opsAction(ctx context.Context, cmd *cli.Command) error {
	application, err := setup(cmd)
	if err != nil {
		return err
	}

	doc, err := application.Descriptor()
	if err != nil {
		return err
	}

	for _, op := range doc.Operations() {
		if op.Summary != "" {
			fmt.Printf("%-32s %-6s %-40s %s\n", op.ID, op.Method, op.Path, op.Summary)
			continue
		}
		fmt.Printf("%-32s %-6s %s\n", op.ID, op.Method, op.Path)
	}

	return nil
}

func callAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one operation id, got %d arguments", cmd.Args().Len())
	}
	operationID := cmd.Args().First()

	application, err := setup(cmd)
	if err != nil {
		return err
	}

	doc, err := application.Descriptor()
	if err != nil {
		return err
	}

	cfg, err := doc.Endpoint(operationID)
	if err != nil {
		return err
	}

	args, err := buildArgs(cmd)
	if err != nil {
		return err
	}

	result, err := application.Client.Do(ctx, cfg, args)
	if err != nil {
		return err
	}

	return printResult(result)
}

// buildArgs translates CLI flags into call arguments.
func buildArgs(cmd *cli.Command) (endpoint.Args, error) {
	args := endpoint.Args{}

	path, err := parsePairs(cmd.StringSlice("path"))
	if err != nil {
		return endpoint.Args{}, fmt.Errorf("invalid --path: %w", err)
	}
	args.Path = path

	query, err := parsePairs(cmd.StringSlice("query"))
	if err != nil {
		return endpoint.Args{}, fmt.Errorf("invalid --query: %w", err)
	}
	args.Query = query

	if body := cmd.String("body"); body != "" {
		raw, err := readBody(body)
		if err != nil {
			return endpoint.Args{}, err
		}
		if !json.Valid(raw) {
			return endpoint.Args{}, fmt.Errorf("request body is not valid JSON")
		}
		args.Body = json.RawMessage(raw)
	}

	return args, nil
}

// parsePairs splits repeatable name=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%q is not name=value", pair)
		}
		values[name] = value
	}
	return values, nil
}

// readBody resolves the --body flag, supporting @file indirection.
func readBody(body string) ([]byte, error) {
	if !strings.HasPrefix(body, "@") {
		return []byte(body), nil
	}

	data, err := os.ReadFile(strings.TrimPrefix(body, "@"))
	if err != nil {
		return nil, fmt.Errorf("reading body file: %w", err)
	}
	return data, nil
}

// printResult writes the call result to stdout. Parsed responses print as
// their JSON source; transformed values marshal back to JSON.
func printResult(result any) error {
	switch value := result.(type) {
	case gjson.Result:
		if value.Raw == "" {
			return nil
		}
		fmt.Println(value.Raw)
	default:
		encoded, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(encoded))
	}
	return nil
}
