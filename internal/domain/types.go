package domain

import "time"

// UserID is the stable Telegram user identifier.
type UserID int64

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// DeliveryMode controls whether user input goes to the model right away
// or accumulates in the draft buffer until an explicit flush.
type DeliveryMode string

const (
	DeliveryImmediate DeliveryMode = "immediate"
	DeliveryManual    DeliveryMode = "manual"
)

// BufferKind tags the payload type of a draft buffer item.
type BufferKind string

const (
	BufferText     BufferKind = "text"
	BufferPhoto    BufferKind = "photo"
	BufferDocument BufferKind = "document"
)

type Timestamp = time.Time
