package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"storyloom/internal/entity"
)

type GetEntityInput struct {
	ID string `json:"id" jsonschema:"entity identifier, e.g. char_3 or scene_012"`
}

type ListEntitiesInput struct {
	Kind string `json:"kind" jsonschema:"entity kind: character, location, scene, relationship, open_loop, lore, faction, plot_beat"`
}

type SearchWorldInput struct {
	Query string   `json:"query" jsonschema:"search terms"`
	Kinds []string `json:"kinds,omitempty" jsonschema:"restrict to specific entity kinds"`
	Limit int      `json:"limit,omitempty" jsonschema:"maximum number of results"`
}

type GetRelationshipsInput struct {
	CharacterID string `json:"character_id" jsonschema:"character whose relationships to list"`
}

type StoryStatusInput struct{}

type EntityOutput struct {
	ID   string          `json:"id"`
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type EntitySummaryOutput struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type ListEntitiesOutput struct {
	Entities []EntitySummaryOutput `json:"entities"`
}

type SearchHitOutput struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	Distance float64 `json:"distance"`
	Snippet  string  `json:"snippet,omitempty"`
}

type SearchWorldOutput struct {
	Hits []SearchHitOutput `json:"hits"`
}

type RelationshipOutput struct {
	ID        string `json:"id"`
	With      string `json:"with"`
	WithName  string `json:"with_name,omitempty"`
	Type      string `json:"type"`
	Status    string `json:"status,omitempty"`
	Intensity int    `json:"intensity"`
}

type GetRelationshipsOutput struct {
	Relationships []RelationshipOutput `json:"relationships"`
}

type StoryStatusOutput struct {
	CurrentTick     int            `json:"current_tick"`
	ActiveCharacter string         `json:"active_character,omitempty"`
	StoryGoals      []string       `json:"story_goals,omitempty"`
	Premise         string         `json:"premise,omitempty"`
	EntityCounts    map[string]int `json:"entity_counts"`
	OpenLoops       int            `json:"open_loops"`
	LastSceneID     string         `json:"last_scene_id,omitempty"`
	LastSceneTitle  string         `json:"last_scene_title,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_entity",
		Description: "Retrieve one entity by identifier",
	}, s.handleGetEntity)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_entities",
		Description: "List all entities of a kind",
	}, s.handleListEntities)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "search_world",
		Description: "Search the world by text similarity",
	}, s.handleSearchWorld)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_relationships",
		Description: "List a character's relationships",
	}, s.handleGetRelationships)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "story_status",
		Description: "Summarize the story's current state",
	}, s.handleStoryStatus)
}

func (s *Server) handleGetEntity(ctx context.Context, req *sdk.CallToolRequest, input GetEntityInput) (*sdk.CallToolResult, EntityOutput, error) {
	if input.ID == "" {
		return nil, EntityOutput{}, fmt.Errorf("id is required")
	}
	kind, ok := entity.KindOf(input.ID)
	if !ok {
		return nil, EntityOutput{}, fmt.Errorf("unrecognized identifier %q", input.ID)
	}

	record, err := s.loadEntity(ctx, kind, input.ID)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	if record == nil {
		return nil, EntityOutput{}, fmt.Errorf("entity %s not found", input.ID)
	}
	body, err := json.Marshal(record)
	if err != nil {
		return nil, EntityOutput{}, err
	}
	return nil, EntityOutput{ID: input.ID, Kind: string(kind), Body: body}, nil
}

func (s *Server) loadEntity(ctx context.Context, kind entity.Kind, id string) (any, error) {
	switch kind {
	case entity.KindCharacter:
		c, err := s.store.GetCharacter(ctx, id)
		if c == nil {
			return nil, err
		}
		return c, err
	case entity.KindLocation:
		l, err := s.store.GetLocation(ctx, id)
		if l == nil {
			return nil, err
		}
		return l, err
	case entity.KindScene:
		sc, err := s.store.GetScene(ctx, id)
		if sc == nil {
			return nil, err
		}
		return sc, err
	case entity.KindRelationship:
		r, err := s.store.GetRelationship(ctx, id)
		if r == nil {
			return nil, err
		}
		return r, err
	case entity.KindOpenLoop:
		l, err := s.store.GetOpenLoop(ctx, id)
		if l == nil {
			return nil, err
		}
		return l, err
	case entity.KindLore:
		l, err := s.store.GetLore(ctx, id)
		if l == nil {
			return nil, err
		}
		return l, err
	case entity.KindFaction:
		f, err := s.store.GetFaction(ctx, id)
		if f == nil {
			return nil, err
		}
		return f, err
	case entity.KindPlotBeat:
		b, err := s.store.GetPlotBeat(ctx, id)
		if b == nil {
			return nil, err
		}
		return b, err
	}
	return nil, fmt.Errorf("unsupported kind %q", kind)
}

func (s *Server) handleListEntities(ctx context.Context, req *sdk.CallToolRequest, input ListEntitiesInput) (*sdk.CallToolResult, ListEntitiesOutput, error) {
	kind := entity.Kind(input.Kind)
	out := ListEntitiesOutput{Entities: []EntitySummaryOutput{}}

	switch kind {
	case entity.KindCharacter:
		items, err := s.store.ListCharacters(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.DisplayName()})
		}
	case entity.KindLocation:
		items, err := s.store.ListLocations(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Name})
		}
	case entity.KindScene:
		items, err := s.store.ListScenes(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Title})
		}
	case entity.KindOpenLoop:
		items, err := s.store.ListOpenLoops(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Description})
		}
	case entity.KindLore:
		items, err := s.store.ListLore(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Content})
		}
	case entity.KindFaction:
		items, err := s.store.ListFactions(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Name})
		}
	case entity.KindPlotBeat:
		items, err := s.store.ListPlotBeats(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Description})
		}
	case entity.KindRelationship:
		items, err := s.store.ListRelationships(ctx)
		if err != nil {
			return nil, out, err
		}
		for _, item := range items {
			out.Entities = append(out.Entities, EntitySummaryOutput{ID: item.ID, Name: item.Type})
		}
	default:
		return nil, out, fmt.Errorf("unknown kind %q", input.Kind)
	}
	return nil, out, nil
}

func (s *Server) handleSearchWorld(ctx context.Context, req *sdk.CallToolRequest, input SearchWorldInput) (*sdk.CallToolResult, SearchWorldOutput, error) {
	if input.Query == "" {
		return nil, SearchWorldOutput{}, fmt.Errorf("query is required")
	}
	limit := input.Limit
	if limit == 0 {
		limit = 10
	}
	var kinds []entity.Kind
	for _, k := range input.Kinds {
		kinds = append(kinds, entity.Kind(k))
	}

	hits, err := s.index.Search(ctx, input.Query, kinds, limit)
	if err != nil {
		return nil, SearchWorldOutput{}, err
	}
	out := SearchWorldOutput{Hits: make([]SearchHitOutput, 0, len(hits))}
	for _, hit := range hits {
		out.Hits = append(out.Hits, SearchHitOutput{
			ID:       hit.ID,
			Kind:     string(hit.Kind),
			Distance: hit.Distance,
			Snippet:  hit.Snippet,
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetRelationships(ctx context.Context, req *sdk.CallToolRequest, input GetRelationshipsInput) (*sdk.CallToolResult, GetRelationshipsOutput, error) {
	if input.CharacterID == "" {
		return nil, GetRelationshipsOutput{}, fmt.Errorf("character_id is required")
	}
	rels, err := s.store.ListRelationships(ctx)
	if err != nil {
		return nil, GetRelationshipsOutput{}, err
	}

	out := GetRelationshipsOutput{Relationships: []RelationshipOutput{}}
	for _, rel := range rels {
		if !rel.Involves(input.CharacterID) {
			continue
		}
		item := RelationshipOutput{
			ID:        rel.ID,
			With:      rel.Other(input.CharacterID),
			Type:      rel.Type,
			Status:    rel.Status,
			Intensity: rel.Intensity,
		}
		if other, err := s.store.GetCharacter(ctx, item.With); err == nil && other != nil {
			item.WithName = other.DisplayName()
		}
		out.Relationships = append(out.Relationships, item)
	}
	return nil, out, nil
}

func (s *Server) handleStoryStatus(ctx context.Context, req *sdk.CallToolRequest, input StoryStatusInput) (*sdk.CallToolResult, StoryStatusOutput, error) {
	state, err := s.store.LoadState(ctx)
	if err != nil {
		return nil, StoryStatusOutput{}, err
	}
	out := StoryStatusOutput{EntityCounts: map[string]int{}}
	if state != nil {
		out.CurrentTick = state.CurrentTick
		out.ActiveCharacter = state.ActiveCharacter
		out.StoryGoals = state.StoryGoals
		out.Premise = state.Foundation.Premise
	}

	for _, kind := range entity.Kinds {
		ids, err := s.store.ListIDs(ctx, kind)
		if err != nil {
			return nil, out, err
		}
		out.EntityCounts[string(kind)] = len(ids)
	}

	loops, err := s.store.ListOpenLoops(ctx)
	if err != nil {
		return nil, out, err
	}
	for _, loop := range loops {
		if loop.Status == entity.LoopOpen {
			out.OpenLoops++
		}
	}

	scenes, err := s.store.ListScenes(ctx)
	if err != nil {
		return nil, out, err
	}
	if len(scenes) > 0 {
		last := scenes[len(scenes)-1]
		out.LastSceneID = last.ID
		out.LastSceneTitle = last.Title
	}
	return nil, out, nil
}
