package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// QuestStatus is the state of a (player, quest) pair.
type QuestStatus = string

const (
	QuestAvailable QuestStatus = "available"
	QuestActive    QuestStatus = "active"
	QuestCompleted QuestStatus = "completed"
	QuestCancelled QuestStatus = "cancelled"
)

// ObjectiveProgress is the stored progress of one quest objective.
type ObjectiveProgress struct {
	Current   int  `json:"current"`
	Required  int  `json:"required"`
	Completed bool `json:"completed"`
}

// PlayerQuest tracks a player's progress on a quest.
type PlayerQuest struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID    int64          `gorm:"uniqueIndex:idx_player_quest;not null" json:"player_id"`
	QuestID     int            `gorm:"uniqueIndex:idx_player_quest;not null" json:"quest_id"`
	Status      string         `gorm:"size:16;not null" json:"status"`
	Progress    datatypes.JSON `json:"progress"` // {"collect_1_0": {"current": 3, "required": 5, "completed": false}}
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at"`
}

// ProgressMap decodes Progress. The result is never nil.
func (q *PlayerQuest) ProgressMap() map[string]*ObjectiveProgress {
	out := make(map[string]*ObjectiveProgress)
	_ = json.Unmarshal(q.Progress, &out)
	return out
}

// SetProgress encodes m into Progress.
func (q *PlayerQuest) SetProgress(m map[string]*ObjectiveProgress) {
	data, _ := json.Marshal(m)
	q.Progress = datatypes.JSON(data)
}
