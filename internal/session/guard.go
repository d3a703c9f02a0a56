package session

import "time"

// BlockReason называет причину, по которой сессия не принимает ответы
type BlockReason string

const (
	BlockNone        BlockReason = ""
	BlockSuspended   BlockReason = "suspended"
	BlockCompleted   BlockReason = "completed"
	BlockTimeExpired BlockReason = "time_expired"
)

// RemainingTime возвращает остаток времени интервью, не ниже нуля
func (s *Session) RemainingTime() time.Duration {
	elapsed := time.Since(s.StartedAt)
	remaining := s.Duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// BlockReason проверяет, заблокирована ли сессия, и почему. Причина
// конкретна: сессия, завершенная по истечению времени, и дальше
// отвечает time_expired, а не completed.
func (s *Session) BlockReason() BlockReason {
	if s.Suspended {
		return BlockSuspended
	}
	if s.TimeExpired {
		return BlockTimeExpired
	}
	if s.Completed {
		return BlockCompleted
	}
	if s.RemainingTime() == 0 {
		return BlockTimeExpired
	}
	return BlockNone
}

// MarkTimeExpired фиксирует наблюдение истечения времени. Флаг
// липкий, как и приостановка.
func (s *Session) MarkTimeExpired() {
	s.TimeExpired = true
	s.LastActivity = time.Now()
}

// IsBlocked сообщает, что сессия больше не принимает ответы
func (s *Session) IsBlocked() bool {
	return s.BlockReason() != BlockNone
}

// Suspend приостанавливает сессию. Флаг липкий: внутри сессии
// приостановка не снимается, повторные вызовы сохраняют первую причину.
func (s *Session) Suspend(reason string) {
	if s.Suspended {
		return
	}
	s.Suspended = true
	s.SuspensionReason = reason
	s.LastActivity = time.Now()
}

// Complete переводит сессию в терминальное состояние
func (s *Session) Complete() {
	s.Completed = true
	s.LastActivity = time.Now()
}
