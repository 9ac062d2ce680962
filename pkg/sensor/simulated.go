package sensor

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Simulated returns a settable raw code with optional random jitter.
type Simulated struct {
	raw     uint32
	jitter  uint32
	enabled map[int]bool
	rnd     *rand.Rand
	sync.Mutex
}

func NewSimulated(raw, jitter uint32) *Simulated {
	return &Simulated{
		raw:     raw,
		jitter:  jitter,
		enabled: make(map[int]bool),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulated) Enable(channel int) error {
	s.Lock()
	s.enabled[channel] = true
	s.Unlock()
	return nil
}

func (s *Simulated) ReadRaw(channel int) (uint32, error) {
	s.Lock()
	defer s.Unlock()
	if !s.enabled[channel] {
		return 0, fmt.Errorf("channel %d not enabled", channel)
	}
	if s.jitter == 0 {
		return s.raw, nil
	}
	return s.raw + uint32(s.rnd.Int63n(int64(s.jitter)+1)), nil
}

func (s *Simulated) Set(raw uint32) {
	s.Lock()
	s.raw = raw
	s.Unlock()
}

func (s *Simulated) Raw() uint32 {
	s.Lock()
	defer s.Unlock()
	return s.raw
}

func (s *Simulated) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/raw", func(w http.ResponseWriter, req *http.Request) {
		value := req.URL.Query().Get("value")
		if value == "" {
			fmt.Fprintf(w, "raw: %d\n", s.Raw())
			return
		}
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logrus.Infof("simulated: setting raw code to %d", v)
		s.Set(uint32(v))
		fmt.Fprintf(w, "raw set to %d\n", v)
	})
	return mux
}

// Serve exposes Handler on address until ctx is done.
func (s *Simulated) Serve(ctx context.Context, wg *sync.WaitGroup, address string) {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Error(err)
		}
	}()
	go func() {
		defer wg.Done()
		<-ctx.Done()
		srv.Close()
	}()
}
