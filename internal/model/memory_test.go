package model_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/rcliao/campaign-memory/internal/model"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  model.Kind
		ok    bool
	}{
		{"session", model.KindSession, true},
		{"sessions", model.KindSession, true},
		{"NPCs", model.KindNPC, true},
		{" location ", model.KindLocation, true},
		{"items", model.KindItem, true},
		{"factions", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := model.ParseKind(tt.input)
			if !tt.ok {
				gt.Error(t, err)
				gt.True(t, errors.Is(err, model.ErrUnknownCollection))
				return
			}
			gt.NoError(t, err)
			gt.Equal(t, got, tt.want)
		})
	}
}

func TestKindFields(t *testing.T) {
	gt.Equal(t, model.KindSession.IDField(), "session_id")
	gt.Equal(t, model.KindSession.NameField(), "")
	gt.Equal(t, model.KindNPC.IDField(), "npc_id")
	gt.Equal(t, model.KindNPC.NameField(), "npc_name")
	gt.Equal(t, model.KindItem.NameField(), "item_name")

	gt.True(t, model.KindNPC.Reserved("type"))
	gt.True(t, model.KindNPC.Reserved("npc_name"))
	gt.False(t, model.KindNPC.Reserved("item_name"))
	gt.False(t, model.KindSession.Reserved(""))
}

func TestMetadataNormalize(t *testing.T) {
	m, err := model.Metadata{"hp": 12, "alive": true, "mood": "grim", "weight": float32(1.5)}.Normalize()
	gt.NoError(t, err)
	gt.Equal(t, m["hp"], any(float64(12)))
	gt.Equal(t, m["weight"], any(float64(1.5)))
	gt.Equal(t, m["alive"], any(true))

	_, err = model.Metadata{"tags": []string{"a"}}.Normalize()
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrInvalidRecord))
}

func TestMetadataMatches(t *testing.T) {
	m := model.Metadata{"type": "npc", "npc_id": "npc_7", "hp": float64(3)}
	gt.True(t, m.Matches(nil))
	gt.True(t, m.Matches(model.Metadata{"npc_id": "npc_7"}))
	gt.True(t, m.Matches(model.Metadata{"npc_id": "npc_7", "hp": float64(3)}))
	gt.False(t, m.Matches(model.Metadata{"npc_id": "npc_8"}))
	gt.False(t, m.Matches(model.Metadata{"faction": "guild"}))
}

func TestNewSessionID(t *testing.T) {
	a := model.NewSessionID()
	b := model.NewSessionID()
	gt.Equal(t, len(a), 26)
	gt.True(t, a != b)
}
