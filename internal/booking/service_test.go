package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"bus-booking/internal/database"
	"bus-booking/internal/mailer"
	"bus-booking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store with the same unique index as the real table.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]models.Booking
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]models.Booking{}}
}

func (m *memStore) InsertBooking(_ context.Context, nb models.NewBooking) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.Personnummer == nb.Personnummer {
			return 0, database.ErrDuplicateIdentity
		}
	}
	m.nextID++
	m.rows[m.nextID] = models.Booking{
		ID: m.nextID, FirstName: nb.FirstName, LastName: nb.LastName, Personnummer: nb.Personnummer,
		Destination: nb.Destination, Date: nb.Date, People: nb.People, Email: nb.Email,
	}
	return m.nextID, nil
}

func (m *memStore) FindBookingByIdentity(_ context.Context, p string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.Personnummer == p {
			return &b, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListBookings(context.Context) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) FindBookingByID(_ context.Context, id int64) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.rows[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (m *memStore) DeleteBookingByID(_ context.Context, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (r *recordingDispatcher) Dispatch(msg mailer.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

func newTestService() (*Service, *memStore, *recordingDispatcher) {
	store := newMemStore()
	d := &recordingDispatcher{}
	return NewService(store, d), store, d
}

func TestCreateScenario(t *testing.T) {
	s, _, d := newTestService()
	ctx := context.Background()

	id, err := s.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Positive(t, id)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.Booking{
		ID: id, FirstName: "Anna", LastName: "Svensson", Personnummer: "1234",
		Destination: "Paris", Date: "2026-06-01", People: 2, Email: "anna@example.com",
	}, list[0])

	require.Len(t, d.sent, 1)
	assert.Equal(t, "anna@example.com", d.sent[0].To)
	assert.Contains(t, d.sent[0].Subject, "Bokningsbekräftelse")
	assert.Contains(t, d.sent[0].Body, "Hej Anna!")
	assert.Contains(t, d.sent[0].Body, "Destination: Paris")
	assert.Contains(t, d.sent[0].Body, "Datum: 2026-06-01")
	assert.Contains(t, d.sent[0].Body, "Antal personer: 2")
}

func TestCreateInvalidPersistsNothing(t *testing.T) {
	s, store, d := newTestService()

	req := validRequest()
	req.Personnummer = "12"
	_, err := s.Create(context.Background(), req)
	assert.True(t, IsValidation(err))
	assert.Empty(t, store.rows)
	assert.Empty(t, d.sent)
}

func TestCreateDuplicateIdentity(t *testing.T) {
	s, store, d := newTestService()
	ctx := context.Background()

	_, err := s.Create(ctx, validRequest())
	require.NoError(t, err)

	other := validRequest()
	other.FirstName = "Bo"
	other.Email = "bo@example.com"
	other.Destination = "Rom"
	_, err = s.Create(ctx, other)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
	assert.True(t, IsDuplicate(err))
	assert.Equal(t, "Dubbelbokning ej tillåten för detta personnummer!", err.Error())

	count := 0
	for _, b := range store.rows {
		if b.Personnummer == "1234" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Len(t, d.sent, 1)
}

func TestCreateConcurrentSameIdentity(t *testing.T) {
	s, store, _ := newTestService()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.Create(context.Background(), validRequest())
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrDuplicateIdentity)
	}
	assert.Equal(t, 1, ok)
	assert.Len(t, store.rows, 1)
}

func TestListIsIdempotent(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	for _, p := range []string{"1111", "2222", "3333"} {
		req := validRequest()
		req.Personnummer = p
		_, err := s.Create(ctx, req)
		require.NoError(t, err)
	}

	first, err := s.List(ctx)
	require.NoError(t, err)
	second, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "3333", first[0].Personnummer)
}

func TestDeleteThenList(t *testing.T) {
	s, _, d := newTestService()
	ctx := context.Background()

	id, err := s.Create(ctx, validRequest())
	require.NoError(t, err)

	n, err := s.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	for _, b := range list {
		assert.NotEqual(t, id, b.ID)
	}

	n, err = s.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	require.Len(t, d.sent, 2, "confirmation plus one cancellation")
	assert.Contains(t, d.sent[1].Subject, "Avbokning")
	assert.Contains(t, d.sent[1].Body, "Din bokning har tagits bort.")
}

func TestDeleteUnknownID(t *testing.T) {
	s, _, d := newTestService()

	n, err := s.Delete(context.Background(), 404)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Empty(t, d.sent)
}

func TestGet(t *testing.T) {
	s, _, _ := newTestService()
	ctx := context.Background()

	id, err := s.Create(ctx, validRequest())
	require.NoError(t, err)

	b, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Anna", b.FirstName)

	_, err = s.Get(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// mockStore lets tests inject storage failures.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) InsertBooking(ctx context.Context, b models.NewBooking) (int64, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) FindBookingByIdentity(ctx context.Context, p string) (*models.Booking, error) {
	args := m.Called(ctx, p)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockStore) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	b, _ := args.Get(0).([]models.Booking)
	return b, args.Error(1)
}

func (m *mockStore) FindBookingByID(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*models.Booking)
	return b, args.Error(1)
}

func (m *mockStore) DeleteBookingByID(ctx context.Context, id int64) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func TestCreateStorageFailure(t *testing.T) {
	store := new(mockStore)
	d := &recordingDispatcher{}
	s := NewService(store, d)

	store.On("FindBookingByIdentity", mock.Anything, "1234").Return(nil, nil)
	store.On("InsertBooking", mock.Anything, mock.AnythingOfType("models.NewBooking")).
		Return(int64(0), errors.New("insert booking: connection refused"))

	_, err := s.Create(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, IsStorage(err))
	assert.Equal(t, "insert booking: connection refused", err.Error())
	assert.Empty(t, d.sent)
	store.AssertExpectations(t)
}

func TestCreateLookupFailure(t *testing.T) {
	store := new(mockStore)
	s := NewService(store, &recordingDispatcher{})

	store.On("FindBookingByIdentity", mock.Anything, "1234").Return(nil, errors.New("timeout"))

	_, err := s.Create(context.Background(), validRequest())
	assert.True(t, IsStorage(err))
	store.AssertNotCalled(t, "InsertBooking", mock.Anything, mock.Anything)
}

func TestDeleteStorageFailure(t *testing.T) {
	store := new(mockStore)
	d := &recordingDispatcher{}
	s := NewService(store, d)

	existing := &models.Booking{ID: 9, FirstName: "Anna", Email: "anna@example.com"}
	store.On("FindBookingByID", mock.Anything, int64(9)).Return(existing, nil)
	store.On("DeleteBookingByID", mock.Anything, int64(9)).Return(int64(0), errors.New("deadlock"))

	_, err := s.Delete(context.Background(), 9)
	assert.True(t, IsStorage(err))
	assert.Empty(t, d.sent)
}

func TestDeleteWithoutEmailSendsNothing(t *testing.T) {
	store := new(mockStore)
	d := &recordingDispatcher{}
	s := NewService(store, d)

	store.On("FindBookingByID", mock.Anything, int64(3)).Return(&models.Booking{ID: 3}, nil)
	store.On("DeleteBookingByID", mock.Anything, int64(3)).Return(int64(1), nil)

	n, err := s.Delete(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Empty(t, d.sent)
}

func TestListStorageFailure(t *testing.T) {
	store := new(mockStore)
	s := NewService(store, &recordingDispatcher{})
	store.On("ListBookings", mock.Anything).Return(nil, errors.New("boom"))

	_, err := s.List(context.Background())
	assert.True(t, IsStorage(err))
}
