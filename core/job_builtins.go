package core

import (
	"fmt"

	"github.com/josephlewis42/cicada/core/jobs"
)

// Jobs lists the jobs in the table.
func Jobs(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])
	long := cmd.Flags().Bool('l', "list process group IDs in addition to the normal information")
	pgidsOnly := cmd.Flags().Bool('p', "list process group IDs only")

	return cmd.Run(ctx, args, func(rest []string) int {
		ctx.Jobs.Reap()

		if len(rest) == 0 && !*pgidsOnly {
			ctx.Jobs.Print(ctx.Stdout, *long)
			return 0
		}

		selected := ctx.Jobs.Jobs()
		status := 0
		if len(rest) > 0 {
			selected = nil
			for _, spec := range rest {
				j, err := ctx.Jobs.Get(spec)
				if err != nil {
					ctx.errorf("%s: %v", args[0], err)
					status = 1
					continue
				}
				selected = append(selected, j)
			}
		}

		for _, j := range selected {
			if *pgidsOnly {
				fmt.Fprintln(ctx.Stdout, j.Pgid)
				continue
			}
			fmt.Fprintln(ctx.Stdout, ctx.Jobs.Describe(j, *long))
		}
		return status
	})
}

// Fg resumes a job in the foreground and waits for it.
func Fg(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])

	return cmd.Run(ctx, args, func(rest []string) int {
		spec := ""
		switch len(rest) {
		case 0:
		case 1:
			spec = rest[0]
		default:
			ctx.errorf("%s: too many arguments", args[0])
			return 1
		}

		ctx.Jobs.Reap()
		j, err := ctx.Jobs.Get(spec)
		if err == nil && j.Status() == jobs.Done {
			err = fmt.Errorf("%%%d: %w", j.ID, jobs.ErrJobDone)
		}
		if err != nil {
			ctx.errorf("%s: %v", args[0], err)
			return 1
		}

		fmt.Fprintln(ctx.Stdout, j.Command)
		return ctx.foreground(j, true)
	})
}

// Bg resumes stopped jobs without waiting for them.
func Bg(ctx *Context, args []string) int {
	cmd := newSimpleBuiltin(args[0])

	return cmd.Run(ctx, args, func(rest []string) int {
		if len(rest) == 0 {
			rest = []string{""}
		}

		ctx.Jobs.Reap()
		status := 0
		for _, spec := range rest {
			j, err := ctx.Jobs.Get(spec)
			if err != nil {
				ctx.errorf("%s: %v", args[0], err)
				status = 1
				continue
			}

			switch {
			case j.Status() == jobs.Done:
				ctx.errorf("%s: %%%d: %v", args[0], j.ID, jobs.ErrJobDone)
				status = 1
				continue
			case j.Status() == jobs.Running && j.Background:
				ctx.errorf("%s: job %d already in background", args[0], j.ID)
				continue
			}

			if err := ctx.Jobs.Continue(j, false); err != nil {
				ctx.errorf("%s: %v", args[0], err)
				status = 1
				continue
			}
			fmt.Fprintf(ctx.Stdout, "[%d]%c %s &\n", j.ID, ctx.Jobs.Marker(j), j.Command)
		}
		return status
	})
}

func init() {
	addBuiltin("jobs", "jobs [-lp] [job_spec ...]", "Display status of jobs.", Jobs)
	addBuiltin("fg", "fg [job_spec]", "Move job to the foreground.", Fg)
	addBuiltin("bg", "bg [job_spec ...]", "Move jobs to the background.", Bg)
}
