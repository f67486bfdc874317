package service

import (
	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

func archiveKey(jobID string) string {
	return jobID + ".upload"
}
