package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"taskBoard/internal/app"
	"taskBoard/internal/models/task"
	"taskBoard/internal/view"

	"github.com/spf13/cobra"
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("page", "p", 0, "номер страницы")
	cmd.Flags().IntP("size", "n", task.DefaultPageSize, "размер страницы")
	cmd.Flags().Int64("status", 0, "id статуса")
	cmd.Flags().Int64("priority", 0, "id приоритета")
	cmd.Flags().StringP("search", "s", "", "поиск по заголовку")
}

func filterFromFlags(cmd *cobra.Command) (task.Filter, error) {
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("size")
	status, _ := cmd.Flags().GetInt64("status")
	priority, _ := cmd.Flags().GetInt64("priority")
	search, _ := cmd.Flags().GetString("search")

	f := task.NewFilter(
		task.WithPage(page),
		task.WithSize(size),
		task.WithStatusID(status),
		task.WithPriorityID(priority),
		task.WithSearch(search),
	)
	if err := f.Validate(); err != nil {
		return task.Filter{}, err
	}
	return f, nil
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Показать страницу задач",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.Service().Tasks(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderList(page))
				return nil
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Показать доску OPEN / IN_PROGRESS / DONE",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				page, err := a.Service().Tasks(ctx, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderBoard(view.ProjectBoard(page)))
				return nil
			})
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Показать сводку по задачам",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				st, err := a.Service().Statistics(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderStatistics(st))
				return nil
			})
		},
	}
}

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create [title]",
		Short: "Создать задачу",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")
			priority, _ := cmd.Flags().GetInt64("priority")
			status, _ := cmd.Flags().GetInt64("status")

			draft := task.Draft{
				Title:        args[0],
				Description:  description,
				PriorityID:   priority,
				TaskStatusID: status,
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				created, err := a.Service().CreateTask(ctx, draft)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("создана "+created.String()))
				return nil
			})
		},
	}
	cmd.Flags().StringP("description", "d", "", "описание")
	cmd.Flags().Int64("priority", 2, "id приоритета")
	cmd.Flags().Int64("status", 1, "id статуса")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [id] [status]",
		Short: "Сменить статус задачи, например: status 7 DONE",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			target := task.Status(strings.ToUpper(args[1]))
			if !target.Valid() {
				return fmt.Errorf("неизвестный статус %q", args[1])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				refs, err := a.Service().References(ctx)
				if err != nil {
					return err
				}
				st, ok := refs.StatusByType(target)
				if !ok {
					return fmt.Errorf("статус %s отсутствует в справочнике", target)
				}
				updated, err := a.Service().ChangeStatus(ctx, id, st.ID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("обновлена "+updated.String()))
				return nil
			})
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id...]",
		Short: "Удалить одну или несколько задач",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if len(ids) == 1 {
					if err := a.Service().DeleteTask(ctx, ids[0]); err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("удалена #%d", ids[0])))
					return nil
				}

				result := a.Service().DeleteTasks(ctx, ids)
				fmt.Fprintln(cmd.OutOrStdout(), renderBulk(result))
				return result.Err()
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("неверный id %q", s)
	}
	return id, nil
}
