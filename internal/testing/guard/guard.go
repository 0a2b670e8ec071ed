package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("ACTIVITYTRACKING_TEST_MODE") == "" {
			_ = os.Setenv("ACTIVITYTRACKING_TEST_MODE", "1")
		}
	})
}
