// Command splitctl is the operator CLI for running a shard group split
// against file-backed event log snapshots and for inspecting/editing the
// persisted ShardConfigurationSet. It is the counterpart to the teacher's
// server processes: where cmd/coordinator and cmd/shardnode are
// long-running, splitctl is a one-shot tool an operator runs alongside
// them; `config` edits the same shards.json they read at startup, and
// `run` exercises the Splitter's protocol against on-disk snapshots of a
// shard's event log.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/applicationaccess-coordinator/internal/configstore"
	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/eventlog"
	"github.com/dreamware/applicationaccess-coordinator/internal/splitter"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("SPLITCTL")
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "splitctl",
		Short: "Operate shard group splits and the shard configuration store",
	}

	root.AddCommand(newRunCmd(v))
	root.AddCommand(newConfigCmd())
	return root
}

func newRunCmd(v *viper.Viper) *cobra.Command {
	var (
		sourceFile               string
		targetFile               string
		hashRangeStart           int32
		hashRangeEnd             int32
		filterGroupEvents        bool
		batchSize                int
		drainRetryAttempts       int
		drainRetryIntervalMillis int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a split of one hash range from a source event log snapshot to a target one",
		Long: "Run a split of one hash range from a source event log snapshot to a target one.\n\n" +
			"Source and target are JSON event log snapshots on disk (see internal/eventlog), " +
			"the same file-backed reference implementation the Splitter's protocol tests run " +
			"against. --target-file is read first so a previously interrupted split resumes " +
			"idempotently, then both files are rewritten to reflect the completed split: the " +
			"moved hash range is gone from --source-file and present in --target-file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			v.BindPFlags(cmd.Flags())

			source, err := eventlog.LoadLogFromFile(sourceFile)
			if err != nil {
				return err
			}
			target, err := eventlog.LoadPersisterFromFile(targetFile)
			if err != nil {
				return err
			}
			router := eventlog.NewRouter()

			s := splitter.New(nil)
			params := splitter.Params{
				SourceEventReader:                          source,
				TargetEventPersister:                       target,
				SourceEventDeleter:                         source,
				OperationRouter:                            router,
				SourceWriterAdmin:                          source,
				HashRangeStart:                             hashRangeStart,
				HashRangeEnd:                               hashRangeEnd,
				FilterGroupEventsByHashRange:                filterGroupEvents,
				EventBatchSize:                              batchSize,
				SourceWriterOpsCompleteCheckRetryAttempts:   drainRetryAttempts,
				SourceWriterOpsCompleteCheckRetryInterval:   time.Duration(drainRetryIntervalMillis) * time.Millisecond,
			}

			if err := s.CopyEventsToTargetShardGroup(cmd.Context(), params); err != nil {
				return fmt.Errorf("split failed in phase %s: %w", s.State(), err)
			}
			if err := source.SaveToFile(sourceFile); err != nil {
				return err
			}
			if err := target.SaveToFile(targetFile); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "split complete: %s\n", s.State())
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceFile, "source-file", "", "source event log snapshot (JSON)")
	cmd.Flags().StringVar(&targetFile, "target-file", "", "target event log snapshot (JSON)")
	cmd.Flags().Int32Var(&hashRangeStart, "hash-range-start", 0, "start of the hash range to move (inclusive)")
	cmd.Flags().Int32Var(&hashRangeEnd, "hash-range-end", 0, "end of the hash range to move (inclusive)")
	cmd.Flags().BoolVar(&filterGroupEvents, "filter-group-events", true, "restrict Group-kind events to the hash range as well")
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "events moved per batch")
	cmd.Flags().IntVar(&drainRetryAttempts, "drain-retry-attempts", 10, "drain poll retry attempts before failing")
	cmd.Flags().IntVar(&drainRetryIntervalMillis, "drain-retry-interval-ms", 500, "wait between drain polls, in milliseconds")
	cmd.MarkFlagRequired("source-file")
	cmd.MarkFlagRequired("target-file")

	return cmd
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or write the persisted ShardConfigurationSet",
	}
	cmd.AddCommand(newConfigReadCmd())
	cmd.AddCommand(newConfigWriteCmd())
	return cmd
}

func newConfigReadCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Print the shard configuration set stored at --path",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := configstore.New(path).Read()
			if err != nil {
				return err
			}
			for _, a := range set.Items() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s/%s start=%d -> %s (%s)\n",
					a.Element, a.Operation, a.HashRangeStart, a.Description, a.Config)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "shards.json", "path to the shard configuration file")
	return cmd
}

func newConfigWriteCmd() *cobra.Command {
	var (
		path           string
		element        string
		operation      string
		hashRangeStart int32
		addr           string
		description    string
	)
	cmd := &cobra.Command{
		Use:   "write",
		Short: "Append one shard assignment to the shard configuration file at --path",
		RunE: func(cmd *cobra.Command, args []string) error {
			persister := configstore.New(path)

			existing, err := persister.Read()
			var assignments []domain.ShardAssignment
			if err == nil {
				assignments = existing.Items()
			}

			el, err := parseElementFlag(element)
			if err != nil {
				return err
			}
			op, err := parseOperationFlag(operation)
			if err != nil {
				return err
			}

			assignments = append(assignments, domain.ShardAssignment{
				Element:        el,
				Operation:      op,
				HashRangeStart: domain.HashRangeStart(hashRangeStart),
				Config:         domain.HTTPShardClientConfig{Addr: addr},
				Description:    domain.ShardDescription(description),
			})

			set, err := domain.NewShardConfigurationSet(assignments...)
			if err != nil {
				return err
			}
			return persister.Write(set)
		},
	}
	cmd.Flags().StringVar(&path, "path", "shards.json", "path to the shard configuration file")
	cmd.Flags().StringVar(&element, "element", "", "User, Group, or GroupToGroupMapping")
	cmd.Flags().StringVar(&operation, "operation", "", "Query or Event")
	cmd.Flags().Int32Var(&hashRangeStart, "hash-range-start", 0, "start of this assignment's hash range")
	cmd.Flags().StringVar(&addr, "addr", "", "shard node address (host:port)")
	cmd.Flags().StringVar(&description, "description", "", "human-readable shard description")
	cmd.MarkFlagRequired("element")
	cmd.MarkFlagRequired("operation")
	cmd.MarkFlagRequired("addr")
	cmd.MarkFlagRequired("description")
	return cmd
}

func parseElementFlag(s string) (domain.DataElement, error) {
	switch s {
	case "User":
		return domain.User, nil
	case "Group":
		return domain.Group, nil
	case "GroupToGroupMapping":
		return domain.GroupToGroupMapping, nil
	default:
		return 0, fmt.Errorf("unknown --element %q (want User, Group, or GroupToGroupMapping)", s)
	}
}

func parseOperationFlag(s string) (domain.Operation, error) {
	switch s {
	case "Query":
		return domain.Query, nil
	case "Event":
		return domain.Event, nil
	default:
		return 0, fmt.Errorf("unknown --operation %q (want Query or Event)", s)
	}
}
