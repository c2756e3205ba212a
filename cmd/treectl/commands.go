package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/alerttree/internal/config"
	"github.com/gyaneshwarpardhi/alerttree/internal/engine"
	"github.com/gyaneshwarpardhi/alerttree/internal/event"
	"github.com/gyaneshwarpardhi/alerttree/internal/handler"
	"github.com/gyaneshwarpardhi/alerttree/internal/tree"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "treectl",
		Short:         "Work with behavior tree definition files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newValidateCmd(), newFmtCmd(), newCloneCmd(), newRunCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file...]",
		Short: "Check tree files for structural errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				t, warnings, err := tree.ReadFile(path)
				for _, w := range warnings {
					fmt.Fprintf(out, "%s: warning: %s\n", path, w)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok (%s, %d nodes)\n", path, t.ID, t.Root.Count())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
}

func newFmtCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt [file...]",
		Short: "Rewrite tree files in canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				t, _, err := tree.ReadFile(path)
				if err != nil {
					return err
				}
				data, err := tree.ToJSON(t)
				if err != nil {
					return err
				}
				data = append(data, '\n')
				if !write {
					if _, err := cmd.OutOrStdout().Write(data); err != nil {
						return err
					}
					continue
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write result to the source file instead of stdout")
	return cmd
}

func newCloneCmd() *cobra.Command {
	var id, name, output string
	cmd := &cobra.Command{
		Use:   "clone [file]",
		Short: "Copy a tree under a new id with regenerated node ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, _, err := tree.ReadFile(args[0])
			if err != nil {
				return err
			}
			cp := tree.Clone(src, id, name)
			if _, err := tree.Validate(cp); err != nil {
				return err
			}
			data, err := tree.ToJSON(cp)
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return os.WriteFile(output, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "id of the new tree (required)")
	cmd.Flags().StringVar(&name, "name", "", "name of the new tree (default \"<name> (copy)\")")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newRunCmd() *cobra.Command {
	var dataArg string
	var verbose bool
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a tree once with the built-in handlers",
		Long: `Execute a tree once against --data (inline JSON or @file) using the
built-in actions and conditions. Emitted events are printed after the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readData(dataArg)
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			rec := event.NewRecorder(0)
			reg := handler.NewRegistry(logger)
			eng := engine.New(cmd.Context(), reg, rec, config.EngineConf{ExecuteWorkers: 1, NotifyWorkers: 1}, logger)
			handler.RegisterBuiltins(reg, eng, logger)

			t, _, err := tree.ReadFile(args[0])
			if err != nil {
				eng.Shutdown()
				return err
			}
			if err := eng.RegisterTree(t); err != nil {
				eng.Shutdown()
				return err
			}
			res, err := eng.Execute(cmd.Context(), t.ID, data, map[string]interface{}{"source": "treectl"})
			eng.Shutdown()
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]interface{}{"result": res, "events": rec.Events()}); err != nil {
				return err
			}
			if res.Status != tree.StatusSuccess {
				return fmt.Errorf("tree %s finished with status %s", t.ID, res.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&dataArg, "data", "d", "", "input data as JSON, or @path to read it from a file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log handler activity to stderr")
	return cmd
}

func readData(arg string) (map[string]interface{}, error) {
	if arg == "" {
		return map[string]interface{}{}, nil
	}
	var raw []byte
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if path == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
	} else {
		raw = []byte(arg)
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse data: %w", err)
	}
	return data, nil
}
