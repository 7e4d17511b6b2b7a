package replay

import (
	"fmt"

	"github.com/vinayprograms/pursuit/internal/session"
)

// loadSession reads a transcript and truncates oversized entries.
func (r *Replayer) loadSession(path string) (*session.Session, error) {
	sess, err := session.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	if r.maxContentSize > 0 {
		for i := range sess.Events {
			if len(sess.Events[i].Content) > r.maxContentSize {
				originalSize := len(sess.Events[i].Content)
				sess.Events[i].Content = sess.Events[i].Content[:r.maxContentSize] +
					fmt.Sprintf("\n... [truncated, %d bytes total]", originalSize)
			}
		}
	}
	return sess, nil
}
