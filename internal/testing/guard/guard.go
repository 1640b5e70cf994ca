package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("QUARRYDESK_TEST_MODE") == "" {
			_ = os.Setenv("QUARRYDESK_TEST_MODE", "1")
		}
	})
}
