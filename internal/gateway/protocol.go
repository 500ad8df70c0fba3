package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/kdev89/feudline/internal/game"
	"github.com/kdev89/feudline/internal/room"
)

// ClientMessage is the inbound JSON envelope on a room connection.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// joinRequest is the handshake payload, the first message on every
// connection.
type joinRequest struct {
	Token     string `json:"token,omitempty"`
	Name      string `json:"name,omitempty"`
	RoomCode  string `json:"roomCode,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`
	// GuestID lets a guest resume the identity echoed back in the joined
	// frame after a dropped connection.
	GuestID string `json:"guestId,omitempty"`
}

// DecodeCommand maps a client message onto the room command union. Unknown
// types and malformed payloads yield an error; the caller drops them.
func DecodeCommand(msgType string, data json.RawMessage) (room.Command, error) {
	unmarshal := func(v any) error {
		if len(data) == 0 {
			return fmt.Errorf("message %q requires a payload", msgType)
		}
		return json.Unmarshal(data, v)
	}

	switch msgType {
	case "leave":
		return room.Leave{Consented: true}, nil

	case "buzz":
		return room.Buzz{}, nil
	case "submitAnswer":
		var p struct {
			Answer string `json:"answer"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.SubmitAnswer{Answer: p.Answer}, nil
	case "ready":
		return room.Ready{}, nil
	case "switchTeam":
		return room.SwitchTeam{}, nil
	case "toggleSpectator":
		return room.ToggleSpectator{}, nil
	case "playOrPass":
		var p struct {
			Choice string `json:"choice"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.PlayOrPass{Choice: p.Choice}, nil
	case "fastMoneyAnswer":
		var p struct {
			Answer string `json:"answer"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.FastMoneyAnswer{Answer: p.Answer}, nil

	case "startGame":
		return room.StartGame{}, nil
	case "nextRound":
		return room.NextRound{}, nil
	case "revealAnswer":
		var p struct {
			Index int `json:"index"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.RevealAnswer{Index: p.Index}, nil
	case "addStrike":
		return room.AddStrike{}, nil
	case "passControl":
		return room.PassControl{}, nil
	case "startFaceoff":
		var p struct {
			Player1ID string `json:"player1Id"`
			Player2ID string `json:"player2Id"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.StartFaceoff{Player1ID: p.Player1ID, Player2ID: p.Player2ID}, nil
	case "endRound":
		return room.EndRound{}, nil
	case "setTeamName":
		var p struct {
			TeamID string `json:"teamId"`
			Name   string `json:"name"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.SetTeamName{TeamID: game.TeamID(p.TeamID), Name: p.Name}, nil
	case "startFastMoney":
		return room.StartFastMoney{}, nil
	case "selectFastMoneyPlayers":
		var p struct {
			Player1ID string `json:"player1Id"`
			Player2ID string `json:"player2Id"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.SelectFastMoneyPlayers{Player1ID: p.Player1ID, Player2ID: p.Player2ID}, nil
	case "startFastMoneyTimer":
		return room.StartFastMoneyTimer{}, nil
	case "revealFastMoneyAnswer":
		var p struct {
			PlayerNum     int `json:"playerNum"`
			QuestionIndex int `json:"questionIndex"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.RevealFastMoneyAnswer{PlayerNum: p.PlayerNum, QuestionIndex: p.QuestionIndex}, nil
	case "nextFastMoneyQuestion":
		return room.NextFastMoneyQuestion{}, nil
	case "endFastMoney":
		return room.EndFastMoney{}, nil
	case "playAgain":
		return room.PlayAgain{}, nil
	case "endGame":
		return room.EndGame{}, nil
	case "kickPlayer":
		var p struct {
			SessionID string `json:"sessionId"`
		}
		if err := unmarshal(&p); err != nil {
			return nil, err
		}
		return room.KickPlayer{SessionID: p.SessionID}, nil
	case "shuffleTeams":
		return room.ShuffleTeams{}, nil
	}

	return nil, fmt.Errorf("unknown message type %q", msgType)
}
