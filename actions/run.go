package actions

import (
	"context"
)

// ListTasks prints the dependency tasks that can be run on their own.
func (o *Orchestrator) ListTasks() {
	o.Console.Println("Available tasks:")
	for _, name := range o.Tasks.TaskNames() {
		o.Console.Printf("   %s\n", name)
	}
}

// RunTask executes one dependency task, ignoring its up-to-date check.
func (o *Orchestrator) RunTask(ctx context.Context, name string) error {
	return o.Tasks.RunTask(ctx, name)
}
