package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

func mustJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Frames are built from engine-owned structs; a marshal failure is a
		// programming error, not a runtime condition.
		log.Error().Err(err).Msg("failed to marshal gateway frame")
		return []byte(`{}`)
	}
	return data
}
