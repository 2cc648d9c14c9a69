package location

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Update) Update {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("location update was not delivered")
		return Update{}
	}
}

func TestStaticDeliversCoordinatesOnce(t *testing.T) {
	p := NewStatic(&Coordinates{Latitude: 41.31, Longitude: 69.24})
	require.Equal(t, AuthorizedWhenInUse, p.RequestAuthorization(context.Background()))

	ch := make(chan Update, 2)
	p.RequestLocation(context.Background(), func(u Update) { ch <- u })

	u := receive(t, ch)
	require.NoError(t, u.Err)
	require.Equal(t, Coordinates{Latitude: 41.31, Longitude: 69.24}, u.Coordinates)

	p.Wait()
	require.Empty(t, ch)
}

func TestStaticWithoutCoordinatesIsDenied(t *testing.T) {
	p := NewStatic(nil)
	require.Equal(t, Denied, p.RequestAuthorization(context.Background()))

	ch := make(chan Update, 1)
	p.RequestLocation(context.Background(), func(u Update) { ch <- u })

	require.ErrorIs(t, receive(t, ch).Err, ErrPermissionDenied)
}

func TestStaticCancelledContext(t *testing.T) {
	p := NewStatic(&Coordinates{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Update, 1)
	p.RequestLocation(ctx, func(u Update) { ch <- u })

	require.ErrorIs(t, receive(t, ch).Err, context.Canceled)
}

func TestAuthorizationString(t *testing.T) {
	require.Equal(t, "denied", Denied.String())
	require.Equal(t, "authorized_when_in_use", AuthorizedWhenInUse.String())
	require.Equal(t, "not_determined", NotDetermined.String())
}

func TestStopDropsPendingFix(t *testing.T) {
	p := NewStatic(&Coordinates{Latitude: 41.31, Longitude: 69.24}, WithFixDelay(300*time.Millisecond))

	ch := make(chan Update, 1)
	p.RequestLocation(context.Background(), func(u Update) { ch <- u })
	p.StopUpdatingLocation()

	p.Wait()
	require.Empty(t, ch)
}

func TestStopDoesNotAffectLaterRequests(t *testing.T) {
	p := NewStatic(&Coordinates{Latitude: 41.31, Longitude: 69.24}, WithFixDelay(50*time.Millisecond))

	stale := make(chan Update, 1)
	p.RequestLocation(context.Background(), func(u Update) { stale <- u })
	p.StopUpdatingLocation()

	fresh := make(chan Update, 1)
	p.RequestLocation(context.Background(), func(u Update) { fresh <- u })

	require.NoError(t, receive(t, fresh).Err)
	p.Wait()
	require.Empty(t, stale)
}

func TestDelayedFixHonoursContext(t *testing.T) {
	p := NewStatic(&Coordinates{}, WithFixDelay(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan Update, 1)
	p.RequestLocation(ctx, func(u Update) { ch <- u })
	cancel()

	require.ErrorIs(t, receive(t, ch).Err, context.Canceled)
}
