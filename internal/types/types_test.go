package types

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Variants(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{
			name:  "join trims username",
			frame: `{"type":"joinRoom","data":{"roomId":"ABC123","username":"  ann  "}}`,
			want:  JoinRoom{RoomID: "ABC123", Username: "ann"},
		},
		{
			name:  "start game",
			frame: `{"type":"startGame","data":{"roomId":"ABC123","totalRounds":3}}`,
			want:  StartGame{RoomID: "ABC123", TotalRounds: 3},
		},
		{
			name:  "choose word",
			frame: `{"type":"chooseWord","data":{"roomId":"ABC123","word":"cat"}}`,
			want:  ChooseWord{RoomID: "ABC123", Word: "cat"},
		},
		{
			name:  "guess keeps text untouched",
			frame: `{"type":"guess","data":{"roomId":"ABC123","guess":" Cat ","username":"ann"}}`,
			want:  SubmitGuess{RoomID: "ABC123", Guess: " Cat ", Username: "ann"},
		},
		{
			name:  "clear canvas",
			frame: `{"type":"clearCanvas","data":{"roomId":"ABC123"}}`,
			want:  ClearCanvas{RoomID: "ABC123"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode([]byte(tc.frame))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, "ABC123", got.Room())
		})
	}
}

func TestDecode_StrokeKeepsRawPayload(t *testing.T) {
	raw := `{"roomId":"ABC123","x0":1,"y0":2,"x1":3,"y1":4,"color":"#000","width":5}`
	got, err := Decode([]byte(`{"type":"draw","data":` + raw + `}`))
	require.NoError(t, err)

	stroke, ok := got.(Stroke)
	require.True(t, ok)
	assert.Equal(t, "ABC123", stroke.RoomID)
	assert.JSONEq(t, raw, string(stroke.Data))
}

func TestDecode_Errors(t *testing.T) {
	cases := []struct {
		name    string
		frame   string
		wantErr error
	}{
		{"unknown type", `{"type":"teleport","data":{}}`, ErrUnknownType},
		{"missing room", `{"type":"joinRoom","data":{"username":"ann"}}`, ErrMissingField},
		{"blank username", `{"type":"joinRoom","data":{"roomId":"R","username":"   "}}`, ErrMissingField},
		{"missing word", `{"type":"chooseWord","data":{"roomId":"R"}}`, ErrMissingField},
		{"missing guess username", `{"type":"guess","data":{"roomId":"R","guess":"cat"}}`, ErrMissingField},
		{"no data", `{"type":"clearCanvas"}`, ErrMissingField},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.frame))
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	_, err := Decode([]byte(`not json`))
	var syntax *json.SyntaxError
	assert.ErrorAs(t, err, &syntax)

	_, err = Decode([]byte(`{"type":"startGame","data":{"roomId":"R","totalRounds":"three"}}`))
	assert.Error(t, err)
}

func TestNormalizeUsername_CapsRunes(t *testing.T) {
	long := strings.Repeat("é", 40)
	assert.Equal(t, strings.Repeat("é", MaxUsernameRunes), NormalizeUsername(long))
}
