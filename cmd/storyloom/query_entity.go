package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"storyloom/internal/entity"
)

func queryEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity <id>",
		Short: "Display an entity document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryEntity(args[0])
		},
	}
	return cmd
}

func runQueryEntity(id string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close(ctx)

	kind, ok := entity.KindOf(id)
	if !ok {
		return fmt.Errorf("unrecognized identifier %q", id)
	}

	var record any
	switch kind {
	case entity.KindCharacter:
		c, e := st.GetCharacter(ctx, id)
		record, err = anyOrNil(c, e)
	case entity.KindLocation:
		l, e := st.GetLocation(ctx, id)
		record, err = anyOrNil(l, e)
	case entity.KindScene:
		s, e := st.GetScene(ctx, id)
		record, err = anyOrNil(s, e)
	case entity.KindRelationship:
		r, e := st.GetRelationship(ctx, id)
		record, err = anyOrNil(r, e)
	case entity.KindOpenLoop:
		l, e := st.GetOpenLoop(ctx, id)
		record, err = anyOrNil(l, e)
	case entity.KindLore:
		l, e := st.GetLore(ctx, id)
		record, err = anyOrNil(l, e)
	case entity.KindFaction:
		f, e := st.GetFaction(ctx, id)
		record, err = anyOrNil(f, e)
	case entity.KindPlotBeat:
		b, e := st.GetPlotBeat(ctx, id)
		record, err = anyOrNil(b, e)
	}
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Fprintf(os.Stdout, "No entity found for %q.\n", id)
		return nil
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}

// anyOrNil keeps a nil pointer nil when boxed into an interface.
func anyOrNil[T any](v *T, err error) (any, error) {
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}
