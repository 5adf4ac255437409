package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewWorkflowCmd создаёт группу команд для управления workflow.
func NewWorkflowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Manage workflows",
	}

	cmd.AddCommand(
		newWorkflowApplyCmd(clientFn, outputFn),
		newWorkflowListCmd(clientFn, outputFn),
		newWorkflowShowCmd(clientFn, outputFn),
		newWorkflowUpdateCmd(clientFn, outputFn),
		newWorkflowDeleteCmd(clientFn, outputFn),
		newWorkflowLogsCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkflowApplyCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "apply FILE",
		Short: "Create a workflow from a definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			wf, err := client.CreateWorkflow(data)
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(wf)
				return nil
			}
			out.Success(fmt.Sprintf("Workflow %s created (%d actions)", wf.ID, len(wf.Actions)))
			return nil
		},
	}
}

func newWorkflowListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			workflows, err := client.ListWorkflows()
			if err != nil {
				return err
			}

			headers := []string{"ID", "TITLE", "TRIGGER", "SCHEDULE", "ACTIONS", "CREATED"}
			rows := make([][]string, len(workflows))
			for i, wf := range workflows {
				rows[i] = []string{wf.ID, wf.Title, wf.Trigger, wf.Schedule, strconv.Itoa(len(wf.Actions)), wf.CreatedAt}
			}
			out.Print(headers, rows, workflows)
			return nil
		},
	}
}

func newWorkflowUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "update WORKFLOW_ID FILE",
		Short: "Replace a workflow definition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[1], err)
			}

			wf, err := client.UpdateWorkflow(args[0], data)
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(wf)
				return nil
			}
			out.Success(fmt.Sprintf("Workflow %s updated (%d actions)", wf.ID, len(wf.Actions)))
			return nil
		},
	}
}

func newWorkflowDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "delete WORKFLOW_ID",
		Short: "Delete a workflow with its executions and audit log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := clientFn().DeleteWorkflow(args[0]); err != nil {
				return err
			}
			outputFn().Success(fmt.Sprintf("Workflow %s deleted", args[0]))
			return nil
		},
	}
}

func newWorkflowShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show WORKFLOW_ID",
		Short: "Show workflow details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			wf, err := client.GetWorkflow(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(wf)
				return nil
			}

			out.KeyValue(
				[]string{"ID", "TITLE", "TRIGGER", "SCHEDULE", "ENTRY", "CREATED"},
				map[string]string{
					"ID":       wf.ID,
					"TITLE":    wf.Title,
					"TRIGGER":  wf.Trigger,
					"SCHEDULE": wf.Schedule,
					"ENTRY":    entryOf(wf),
					"CREATED":  wf.CreatedAt,
				},
			)
			fmt.Fprintln(out.w)

			headers := []string{"ACTION", "TYPE", "NEXT"}
			rows := make([][]string, len(wf.Actions))
			for i, a := range wf.Actions {
				rows[i] = []string{a.ID, a.Type, strings.Join(a.Next, ",")}
			}
			out.Table(headers, rows)
			return nil
		},
	}
}

func newWorkflowLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs WORKFLOW_ID",
		Short: "Show the audit log of all executions of a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			logs, err := client.ListWorkflowLogs(args[0])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(logs)
				return nil
			}

			headers := []string{"EXECUTION", "ACTION", "STATUS", "ATTEMPT", "MESSAGE", "CREATED"}
			rows := make([][]string, len(logs))
			for i, l := range logs {
				rows[i] = []string{l.ExecutionID, l.ActionID, l.Status, strconv.Itoa(l.Attempt), l.Message, l.CreatedAt}
			}
			out.Table(headers, rows)
			return nil
		},
	}
}

// entryOf возвращает явную точку входа или первый узел.
func entryOf(wf *WorkflowResponse) string {
	if wf.Entry != "" {
		return wf.Entry
	}
	if len(wf.Actions) > 0 {
		return wf.Actions[0].ID
	}
	return ""
}

// formatRetries выводит счётчики попыток как "A=1,B=2" в порядке ID.
func formatRetries(retries map[string]int) string {
	keys := make([]string, 0, len(retries))
	for k := range retries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + strconv.Itoa(retries[k])
	}
	return strings.Join(parts, ",")
}
