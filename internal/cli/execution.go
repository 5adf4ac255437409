package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExecuteCmd создаёт команду запуска workflow через API.
func NewExecuteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var executionID string
	var maxRetries int
	var backoffMs int
	var async bool

	cmd := &cobra.Command{
		Use:   "execute WORKFLOW_ID",
		Short: "Execute (or resume) a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			req := ExecuteRequest{ExecutionID: executionID}
			if cmd.Flags().Changed("max-retries") {
				req.MaxRetries = &maxRetries
			}
			if cmd.Flags().Changed("backoff-ms") {
				req.BackoffBaseMs = &backoffMs
			}

			if async {
				accepted, err := client.ExecuteAsync(args[0], req)
				if err != nil {
					return err
				}
				if out.IsJSON() {
					out.JSON(accepted)
					return nil
				}
				out.Success(fmt.Sprintf("Execution %s queued", accepted.ExecutionID))
				return nil
			}

			state, err := client.Execute(args[0], req)
			if err != nil {
				return err
			}
			if out.IsJSON() {
				out.JSON(state)
				return nil
			}
			printExecution(out, state)
			return nil
		},
	}

	cmd.Flags().StringVar(&executionID, "execution-id", "", "Execution ID to start or resume (default: server-generated)")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retries allowed after the first attempt")
	cmd.Flags().IntVar(&backoffMs, "backoff-ms", 0, "Base of exponential backoff in milliseconds")
	cmd.Flags().BoolVar(&async, "async", false, "Queue the execution instead of waiting for it")

	return cmd
}

// NewExecutionCmd создаёт группу команд для просмотра выполнений.
func NewExecutionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execution",
		Short: "Inspect executions",
	}

	cmd.AddCommand(
		newExecutionShowCmd(clientFn, outputFn),
		newExecutionLogsCmd(clientFn, outputFn),
	)

	return cmd
}

func newExecutionShowCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "show WORKFLOW_ID EXECUTION_ID",
		Short: "Show execution state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.GetExecution(args[0], args[1])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(state)
				return nil
			}
			printExecution(out, state)
			return nil
		},
	}
}

func newExecutionLogsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "logs WORKFLOW_ID EXECUTION_ID",
		Short: "Show the audit log of an execution",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			logs, err := client.ListExecutionLogs(args[0], args[1])
			if err != nil {
				return err
			}

			if out.IsJSON() {
				out.JSON(logs)
				return nil
			}
			printLogs(out, logs)
			return nil
		},
	}
}
