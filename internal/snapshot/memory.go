package snapshot

import "context"

// Memory is an in-process Store for tests and ephemeral runs. It
// copies blobs on the way in so callers can't mutate a saved
// snapshot behind the store's back.
type Memory struct {
	blob []byte
	// FailSaves makes every Save return this error, for exercising
	// the engine's write-failure side channel.
	FailSaves error
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Save(ctx context.Context, blob []byte) error {
	if m.FailSaves != nil {
		return m.FailSaves
	}
	m.blob = append([]byte(nil), blob...)
	return nil
}

func (m *Memory) Load(ctx context.Context) ([]byte, error) {
	if m.blob == nil {
		return nil, nil
	}
	return append([]byte(nil), m.blob...), nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.blob = nil
	return nil
}
