package pesc

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/pescapi/pesc/pkg/common"
	"github.com/pescapi/pesc/pkg/log"
)

// Configured returns a Client whose session is built from flags once
// lflag.Configure is called. It uses lflag to register command-line flags for
// configuration. The Client must not be used before then.
func Configured() *Client {
	c := &Client{}
	apiURL := lflag.String("pesc-api-url", DefaultBaseURL, "Root URL of the PESC personal account API")
	timeout := lflag.Duration("pesc-http-timeout", DefaultTimeout, "Timeout for requests to the PESC API")

	lflag.Do(func() {
		if err := log.SyncLLogLevel(); err != nil {
			panic(fmt.Sprintf("pesc log level: %v", err))
		}
		sess, err := configuredSession(*apiURL, *timeout)
		if err != nil {
			panic(fmt.Sprintf("pesc session init failed: %v", err))
		}
		c.sess = sess
	})

	return c
}

// configuredSession validates the flag values and builds the Session from them.
func configuredSession(apiURL string, timeout time.Duration) (*Session, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("pesc-api-url is required")
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("pesc-http-timeout must be positive, got %s", timeout)
	}
	return NewSession(apiURL, common.HTTPClient(timeout, nil))
}
