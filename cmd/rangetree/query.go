package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wyfcoding/rangetree/workload"
	"github.com/wyfcoding/rangetree/xerrors"
)

type queryOptions struct {
	op       string
	expr     string
	identity string
	values   string
	left     int
	right    int
}

func newQueryCommand() *cobra.Command {
	opts := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer one range query over int64 values",
		Example: `  rangetree query --values 1,2,-91,20,5,10,970 --op min --left 3
  rangetree query --values 2,3,4 --op expr --expr "a * b" --identity 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			answer, err := runQuery(opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.op, "op", "sum", "operation: sum, min, max, xor or expr")
	cmd.Flags().StringVar(&opts.expr, "expr", "", "expr-lang expression over a and b when --op=expr")
	cmd.Flags().StringVar(&opts.identity, "identity", "", "identity element (defaults per operation)")
	cmd.Flags().StringVar(&opts.values, "values", "", "comma separated int64 values")
	cmd.Flags().IntVar(&opts.left, "left", 0, "inclusive left bound")
	cmd.Flags().IntVar(&opts.right, "right", -1, "exclusive right bound (-1 = length)")
	return cmd
}

func parseValues(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	values := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, xerrors.InvalidInput("value %q is not an int64", p)
		}
		values = append(values, v)
	}
	return values, nil
}

func runQuery(opts *queryOptions) (int64, error) {
	values, err := parseValues(opts.values)
	if err != nil {
		return 0, err
	}
	m, errFn, err := workload.ResolveInt64(opts.op, opts.expr, opts.identity)
	if err != nil {
		return 0, err
	}

	st := m.Build(values)
	right := opts.right
	if right < 0 {
		right = st.Len()
	}
	answer, err := st.Query(opts.left, right)
	if err != nil {
		return 0, err
	}
	if errFn != nil {
		if err := errFn(); err != nil {
			return 0, err
		}
	}
	return answer, nil
}
