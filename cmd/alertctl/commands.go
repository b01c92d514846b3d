package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-alert-relationships/internal/models"
	"github.com/mr1hm/go-alert-relationships/internal/relationship"
	"github.com/mr1hm/go-alert-relationships/internal/render"
	"github.com/mr1hm/go-alert-relationships/internal/selection"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List alert types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := a.client.FetchAlertTypes(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range types {
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", t.ID, t.AlertType, t.System, t.Message)
			}
			return nil
		},
	}
}

func newAlertsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "Show current alerts as a relationship tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, err := a.client.ListAlerts(cmd.Context())
			if err != nil {
				return err
			}
			root := models.NewRoot()
			root.Children = nodes
			return render.NewAdapter(render.NewTextCanvas(cmd.OutOrStdout()), nil).Render(root)
		},
	}
}

func newTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.client.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newLoadCmd(a *app) *cobra.Command {
	var alertsPath, selectID string

	cmd := &cobra.Command{
		Use:   "load <template>",
		Short: "Apply a template to selected alerts and show the resulting tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := readAlerts(alertsPath)
			if err != nil {
				return err
			}

			store := a.newStore()
			if err := store.LoadTemplate(cmd.Context(), args[0], selected); err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), store, selectID)
		},
	}

	cmd.Flags().StringVar(&alertsPath, "alerts", "", "JSON file with the selected alerts")
	cmd.Flags().StringVar(&selectID, "select", "", "alert id to show details for")
	return cmd
}

func newBuildCmd(a *app) *cobra.Command {
	var alertsPath string
	var save bool

	cmd := &cobra.Command{
		Use:   "build <template>",
		Short: "Build a tree from the alerts' own parent ids, optionally saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			alerts, err := readAlerts(alertsPath)
			if err != nil {
				return err
			}

			store := a.newStore()
			if err := store.BuildLocal(cmd.Context(), args[0], alerts); err != nil {
				return err
			}
			if save {
				if err := store.Save(cmd.Context()); err != nil {
					return err
				}
			}
			return show(cmd.OutOrStdout(), store, "")
		},
	}

	cmd.Flags().StringVar(&alertsPath, "alerts", "", "JSON file with the alerts")
	cmd.Flags().BoolVar(&save, "save", false, "save the tree to the template")
	cmd.MarkFlagRequired("alerts")
	return cmd
}

func newBindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bind <template> <parent-id> <child-id>",
		Short: "Move an alert under another one and save the template",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			template, parentID, childID := args[0], args[1], args[2]

			store, err := loadSaved(cmd.Context(), a, template)
			if err != nil {
				return err
			}
			if err := store.BindRelationship(parentID, childID, template); err != nil {
				return err
			}
			if err := store.Save(cmd.Context()); err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), store, childID)
		},
	}
}

func newSpawnCmd(a *app) *cobra.Command {
	var alertTypeID, name, parentID string

	cmd := &cobra.Command{
		Use:   "spawn <template>",
		Short: "Create a new alert in a template and save it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			template := args[0]

			store, err := loadSaved(cmd.Context(), a, template)
			if err != nil {
				return err
			}
			node, err := store.SpawnAlert(cmd.Context(), alertTypeID, name)
			if err != nil {
				return err
			}
			if parentID != "" {
				if err := store.BindRelationship(parentID, node.ID, template); err != nil {
					return err
				}
			}
			if err := store.Save(cmd.Context()); err != nil {
				return err
			}
			return show(cmd.OutOrStdout(), store, node.ID)
		},
	}

	cmd.Flags().StringVar(&alertTypeID, "type", "", "alert type id")
	cmd.Flags().StringVar(&name, "name", "", "alert name")
	cmd.Flags().StringVar(&parentID, "parent", "", "attach the new alert under this alert id")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("name")
	return cmd
}

// loadSaved opens a template's last saved alert list for editing.
func loadSaved(ctx context.Context, a *app, template string) (*relationship.Store, error) {
	store := a.newStore()
	if err := store.LoadTemplate(ctx, template, nil); err != nil {
		return nil, err
	}
	return store, nil
}

// show renders the store's tree and, when selectID is set, the selected
// alert's details.
func show(w io.Writer, store *relationship.Store, selectID string) error {
	ctrl := selection.New(store)
	var selErr error
	adapter := render.NewAdapter(render.NewTextCanvas(w), func(id string) {
		_, selErr = ctrl.Select(id)
	})

	if err := adapter.Render(store.Tree()); err != nil {
		return err
	}
	fmt.Fprintf(w, "total: %d\n", store.Total())

	if selectID == "" {
		return nil
	}
	if err := adapter.Select(selectID); err != nil {
		return err
	}
	if selErr != nil {
		return selErr
	}

	sel, _ := ctrl.Current()
	fmt.Fprintf(w, "\nid:      %s\nname:    %s\ntype:    %s\nsystem:  %s\nmessage: %s\n",
		sel.ID, sel.Name, sel.AlertTypeID, sel.System, sel.Message)
	return nil
}

func readAlerts(path string) ([]models.FlatAlert, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading alerts: %w", err)
	}
	alerts, err := models.DecodeAlerts(string(raw))
	if err != nil {
		return nil, fmt.Errorf("error decoding alerts from %s: %w", path, err)
	}
	return alerts, nil
}
