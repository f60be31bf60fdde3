package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type MutationState string

const (
	StateIdle       MutationState = "IDLE"
	StateApplying   MutationState = "APPLYING"
	StateCommitted  MutationState = "COMMITTED"
	StateRolledBack MutationState = "ROLLED_BACK"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpStatus Op = "status"
	OpDelete Op = "delete"
)

// Mutation - одна операция изменения и её состояние
type Mutation struct {
	ID     string        `json:"id"`
	Op     Op            `json:"op"`
	TaskID int64         `json:"taskId,omitempty"`
	State  MutationState `json:"state"`
	Error  string        `json:"error,omitempty"`
	At     time.Time     `json:"at"`

	seq uint64
}

// MutationObserver получает каждую смену состояния
type MutationObserver func(Mutation)

var transitions = map[MutationState][]MutationState{
	StateIdle:     {StateApplying, StateRolledBack},
	StateApplying: {StateCommitted, StateRolledBack},
}

func newMutation(op Op, taskID int64, seq uint64) *Mutation {
	return &Mutation{
		ID:     uuid.New().String(),
		Op:     op,
		TaskID: taskID,
		State:  StateIdle,
		At:     time.Now().UTC(),
		seq:    seq,
	}
}

func (m *Mutation) transition(to MutationState) error {
	for _, allowed := range transitions[m.State] {
		if allowed == to {
			m.State = to
			m.At = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("недопустимый переход мутации %s: %s -> %s", m.ID, m.State, to)
}

func (m *Mutation) Done() bool {
	return m.State == StateCommitted || m.State == StateRolledBack
}
