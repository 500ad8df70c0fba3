package room

import "github.com/kdev89/feudline/internal/game"

// Command is the closed set of operations a room can process. Every inbound
// client message decodes to exactly one of these; adding a message type
// means adding a case the dispatcher must handle.
type Command interface{ isCommand() }

// Connection lifecycle.
type (
	Join struct {
		Name      string
		Spectator bool
	}
	Leave struct {
		Consented bool
	}
)

// Any-player messages.
type (
	Buzz            struct{}
	SubmitAnswer    struct{ Answer string }
	Ready           struct{}
	SwitchTeam      struct{}
	ToggleSpectator struct{}
	PlayOrPass      struct{ Choice string }
	FastMoneyAnswer struct{ Answer string }
)

// Host-only messages.
type (
	StartGame    struct{}
	NextRound    struct{}
	RevealAnswer struct{ Index int }
	AddStrike    struct{}
	PassControl  struct{}
	StartFaceoff struct {
		Player1ID string
		Player2ID string
	}
	EndRound    struct{}
	SetTeamName struct {
		TeamID game.TeamID
		Name   string
	}
	StartFastMoney         struct{}
	SelectFastMoneyPlayers struct {
		Player1ID string
		Player2ID string
	}
	StartFastMoneyTimer   struct{}
	RevealFastMoneyAnswer struct {
		PlayerNum     int
		QuestionIndex int
	}
	NextFastMoneyQuestion struct{}
	EndFastMoney          struct{}
	PlayAgain             struct{}
	EndGame               struct{}
	KickPlayer            struct{ SessionID string }
	ShuffleTeams          struct{}
)

// TimerFired is the internal command a firing timer enqueues. Gen is the
// generation captured when the timer was scheduled.
type TimerFired struct {
	Mode game.TimerMode
	Key  string
	Gen  uint64
}

func (Join) isCommand()                   {}
func (Leave) isCommand()                  {}
func (Buzz) isCommand()                   {}
func (SubmitAnswer) isCommand()           {}
func (Ready) isCommand()                  {}
func (SwitchTeam) isCommand()             {}
func (ToggleSpectator) isCommand()        {}
func (PlayOrPass) isCommand()             {}
func (FastMoneyAnswer) isCommand()        {}
func (StartGame) isCommand()              {}
func (NextRound) isCommand()              {}
func (RevealAnswer) isCommand()           {}
func (AddStrike) isCommand()              {}
func (PassControl) isCommand()            {}
func (StartFaceoff) isCommand()           {}
func (EndRound) isCommand()               {}
func (SetTeamName) isCommand()            {}
func (StartFastMoney) isCommand()         {}
func (SelectFastMoneyPlayers) isCommand() {}
func (StartFastMoneyTimer) isCommand()    {}
func (RevealFastMoneyAnswer) isCommand()  {}
func (NextFastMoneyQuestion) isCommand()  {}
func (EndFastMoney) isCommand()           {}
func (PlayAgain) isCommand()              {}
func (EndGame) isCommand()                {}
func (KickPlayer) isCommand()             {}
func (ShuffleTeams) isCommand()           {}
func (TimerFired) isCommand()             {}

// hostOnly reports whether a command requires the sender to be the host.
func hostOnly(c Command) bool {
	switch c.(type) {
	case StartGame, NextRound, RevealAnswer, AddStrike, PassControl,
		StartFaceoff, EndRound, SetTeamName, StartFastMoney,
		SelectFastMoneyPlayers, StartFastMoneyTimer, RevealFastMoneyAnswer,
		NextFastMoneyQuestion, EndFastMoney, PlayAgain, EndGame,
		KickPlayer, ShuffleTeams:
		return true
	}
	return false
}
