package pipeline

import "github.com/google/uuid"

func defaultNewID() string {
	return uuid.NewString()
}
