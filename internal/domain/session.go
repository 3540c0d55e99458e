package domain

// UserSession holds the per-user configuration. Created lazily on first
// interaction and mutated by settings commands; never deleted.
type UserSession struct {
	ID            UserID
	ActiveModel   string
	DeliveryMode  DeliveryMode
	SearchEnabled bool
	ProUnlocked   bool
	CreatedAt     Timestamp
}

// Turn is one logical exchange unit in the conversation history.
// Both the user's input and the model's reply are each one Turn.
type Turn struct {
	ID            string
	UserID        UserID
	Role          Role
	Content       string
	HasAttachment bool
	CreatedAt     Timestamp
}

// FileContextItem is a document staged for the user's next immediate-mode
// request. The binary payload is not stored; FileRef resolves to bytes via
// the messaging platform.
type FileContextItem struct {
	ID        string
	UserID    UserID
	FileRef   string
	Name      string
	MIMEType  string
	Caption   string
	CreatedAt Timestamp
}

// BufferItem is one queued draft unit accumulated in manual mode.
// For text items Content holds the text; for photo and document items it
// holds the platform file reference.
type BufferItem struct {
	ID        string
	UserID    UserID
	Kind      BufferKind
	Content   string
	Caption   string
	MIMEType  string
	FileName  string
	CreatedAt Timestamp
}
