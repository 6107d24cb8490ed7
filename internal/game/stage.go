package game

import "fmt"

// Stage is a creature's life stage.
type Stage int

const (
	StageInfant Stage = iota
	StageYoung
	StageAdult
	StageElderly
)

var stageNames = map[Stage]string{
	StageInfant:  "Infant",
	StageYoung:   "Young",
	StageAdult:   "Adult",
	StageElderly: "Elderly",
}

// Stages lists every stage in lifecycle order.
var Stages = []Stage{StageInfant, StageYoung, StageAdult, StageElderly}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("unknown stage: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	for st, name := range stageNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage: %s", text)
}

// Trigger is something that can move a creature to its next stage.
type Trigger int

const (
	// TriggerAged fires when a creature outgrows its current stage.
	TriggerAged Trigger = iota
	// TriggerFed fires when a creature finishes eating.
	TriggerFed
)

type transition struct {
	from    Stage
	trigger Trigger
}

var transitions = map[transition]Stage{
	{StageInfant, TriggerAged}: StageYoung,
	{StageYoung, TriggerAged}:  StageAdult,
	{StageAdult, TriggerAged}:  StageElderly,
	{StageYoung, TriggerFed}:   StageAdult,
}

// NextStage looks up the stage reached from s on trigger t. The second
// return value is false when no such transition exists.
func NextStage(s Stage, t Trigger) (Stage, bool) {
	next, ok := transitions[transition{s, t}]
	return next, ok
}
