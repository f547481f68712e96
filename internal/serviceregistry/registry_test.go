package serviceregistry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/l2sentinel/sentinel-node/internal/serviceregistry"
)

type fakeService struct {
	started  bool
	stopped  bool
	statusFn func() error
}

func (f *fakeService) Start()       { f.started = true }
func (f *fakeService) Stop() error  { f.stopped = true; return nil }
func (f *fakeService) Status() error {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return nil
}

type otherFakeService struct {
	*fakeService
}

func TestRegisterAndFetch(t *testing.T) {
	r := serviceregistry.New()
	svc := &fakeService{}
	require.NoError(t, r.RegisterService(svc))

	var fetched *fakeService
	require.NoError(t, r.FetchService(&fetched))
	require.Same(t, svc, fetched)
}

func TestRegisterDuplicateTypeFails(t *testing.T) {
	r := serviceregistry.New()
	require.NoError(t, r.RegisterService(&fakeService{}))
	require.Error(t, r.RegisterService(&fakeService{}))
}

func TestFetchUnknownServiceFails(t *testing.T) {
	r := serviceregistry.New()
	var fetched *otherFakeService
	require.Error(t, r.FetchService(&fetched))
}

func TestStartAllAndStopAll(t *testing.T) {
	r := serviceregistry.New()
	svc := &fakeService{}
	require.NoError(t, r.RegisterService(svc))

	r.StartAll()
	require.True(t, svc.started)

	r.StopAll()
	require.True(t, svc.stopped)
}

func TestStatusesReportsPerService(t *testing.T) {
	r := serviceregistry.New()
	svc := &fakeService{statusFn: func() error { return nil }}
	require.NoError(t, r.RegisterService(svc))

	statuses := r.Statuses()
	require.Len(t, statuses, 1)
	for _, err := range statuses {
		require.NoError(t, err)
	}
}
