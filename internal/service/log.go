package service

import "github.com/rs/zerolog/log"

func logWarn(err error, msg, gameID, action string) {
	log.Warn().Err(err).Str("game_id", gameID).Str("action", action).Msg(msg)
}
