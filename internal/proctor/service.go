// Package proctor принимает сигналы нарушений прокторинга: критичные
// типы немедленно приостанавливают сессию, остальные только пишутся
// в журнал улик.
package proctor

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"tech-interview-engine/internal/session"
)

// Violation — сигнал нарушения от внешнего детектора прокторинга.
// Достоверность причины сервис не проверяет, только фиксирует.
type Violation struct {
	Type     string                 `json:"type"`
	Reason   string                 `json:"reason"`
	Evidence map[string]interface{} `json:"evidence,omitempty"`
}

// Критичные нарушения, приостанавливающие интервью немедленно
var criticalViolations = map[string]bool{
	"multiple_faces": true,
	"no_face":        true,
	"device":         true,
	"tab_absence":    true,
	"copy_attempt":   true,
}

// Service представляет сервис обработки нарушений
type Service struct {
	evidenceDir string
}

// New создает сервис и готовит каталоги улик
func New(evidenceDir string) *Service {
	for _, dir := range []string{"logs", "devices", "snapshots"} {
		if err := os.MkdirAll(filepath.Join(evidenceDir, dir), 0755); err != nil {
			log.Printf("⚠️ Ошибка создания каталога улик %s: %v", dir, err)
		}
	}
	return &Service{evidenceDir: evidenceDir}
}

// IsCritical сообщает, требует ли тип нарушения приостановки
func IsCritical(violationType string) bool {
	return criticalViolations[violationType]
}

// HandleViolation обрабатывает нарушение: критичное приостанавливает
// сессию, любое пишется в улики. Сбой записи улик не блокирует
// обработку.
func (s *Service) HandleViolation(sess *session.Session, v Violation) bool {
	critical := IsCritical(v.Type)

	if critical {
		log.Printf("🚨 КРИТИЧНОЕ НАРУШЕНИЕ: %s - %s", v.Type, v.Reason)
		sess.Suspend(fmt.Sprintf("Critical proctoring violation: %s - %s", v.Type, v.Reason))
	} else {
		log.Printf("⚠️ Нарушение прокторинга: %s - %s", v.Type, v.Reason)
	}

	s.logEvidence(sess.ID, v, critical)
	return critical
}

// logEvidence сохраняет улику в JSON файл, раскладывая по категориям
func (s *Service) logEvidence(sessionID string, v Violation, critical bool) {
	ts := time.Now().UTC().Format("20060102T150405.000000000")

	var fname string
	switch {
	case v.Type == "device":
		fname = filepath.Join(s.evidenceDir, "devices", fmt.Sprintf("device_detection_%s.json", ts))
	case critical:
		fname = filepath.Join(s.evidenceDir, "logs", fmt.Sprintf("suspend_%s.json", ts))
	default:
		fname = filepath.Join(s.evidenceDir, "logs", fmt.Sprintf("warning_%s_%s.json", v.Type, ts))
	}

	record := map[string]interface{}{
		"session_id": sessionID,
		"type":       v.Type,
		"reason":     v.Reason,
		"evidence":   v.Evidence,
		"critical":   critical,
		"timestamp":  ts,
	}

	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		log.Printf("⚠️ Ошибка сериализации улики: %v", err)
		return
	}

	if err := os.WriteFile(fname, jsonData, 0644); err != nil {
		log.Printf("⚠️ Ошибка записи улики %s: %v", fname, err)
		return
	}

	log.Printf("Улика сохранена: %s (%s) -> %s", v.Type, v.Reason, fname)
}

// Stats возвращает статистику по каталогам улик
func (s *Service) Stats() map[string]int {
	stats := map[string]int{
		"warnings":          0,
		"suspensions":       0,
		"device_detections": 0,
	}

	entries, err := os.ReadDir(filepath.Join(s.evidenceDir, "logs"))
	if err == nil {
		for _, entry := range entries {
			name := entry.Name()
			switch {
			case len(name) > 8 && name[:8] == "warning_":
				stats["warnings"]++
			case len(name) > 8 && name[:8] == "suspend_":
				stats["suspensions"]++
			}
		}
	}

	devices, err := os.ReadDir(filepath.Join(s.evidenceDir, "devices"))
	if err == nil {
		stats["device_detections"] = len(devices)
	}

	return stats
}
