package model

type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeImage    MessageType = "image"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
)

var MessageTypes = []string{
	string(MessageTypeText),
	string(MessageTypeAudio),
	string(MessageTypeImage),
	string(MessageTypeVideo),
	string(MessageTypeDocument),
}

type StoreDriver string

const (
	StoreDriverPostgres StoreDriver = "postgres"
	StoreDriverMemory   StoreDriver = "memory"
)
