package collector_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powderlines/powderlines/internal/collector"
	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/resort"
)

// fakeContacts serves one canned contact record for every lookup.
type fakeContacts struct {
	info *resort.ContactInfo
	err  error

	lastName string
}

func (f *fakeContacts) FindContact(_ context.Context, name string, _, _ float64) (*resort.ContactInfo, error) {
	f.lastName = name
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func newContactCollector(store *fakeStore, places *fakeContacts) *collector.ContactCollector {
	return collector.NewContactCollector(collector.ContactCollectorConfig{
		Logger: zerolog.New(io.Discard),
		Store:  store,
		Places: places,
	})
}

func strp(v string) *string { return &v }

func TestCollectContact(t *testing.T) {
	info := &resort.ContactInfo{
		Address: strp("4545 Blackcomb Way"),
		City:    strp("Whistler"),
		Phone:   strp("+1 604-967-8950"),
		Website: strp("https://www.whistlerblackcomb.com"),
	}

	store := &fakeStore{}
	places := &fakeContacts{info: info}

	err := newContactCollector(store, places).CollectContact(context.Background(), mtnPowderDesc())
	require.NoError(t, err)

	assert.Equal(t, "Whistler Blackcomb", places.lastName)
	require.Contains(t, store.contacts, int64(1))
	assert.Equal(t, info, store.contacts[1])
}

func TestCollectContact_LookupFails(t *testing.T) {
	store := &fakeStore{}
	places := &fakeContacts{err: fault.New(fault.TypeNoData, "no place matched", "")}

	err := newContactCollector(store, places).CollectContact(context.Background(), mtnPowderDesc())
	require.Error(t, err)
	assert.Equal(t, fault.TypeNoData, fault.TypeOf(err))
	assert.Empty(t, store.contacts)
}

func TestCollectContact_SaveFails(t *testing.T) {
	store := &fakeStore{contactErr: errors.New("connection refused")}
	places := &fakeContacts{info: &resort.ContactInfo{Phone: strp("+1 604-967-8950")}}

	err := newContactCollector(store, places).CollectContact(context.Background(), mtnPowderDesc())
	require.Error(t, err)
	assert.Equal(t, fault.TypeDatabaseSave, fault.TypeOf(err))
}

func TestContactRun(t *testing.T) {
	store := &fakeStore{}
	places := &fakeContacts{info: &resort.ContactInfo{City: strp("Whistler")}}

	result := newContactCollector(store, places).Run(
		context.Background(),
		[]resort.Descriptor{mtnPowderDesc(), onTheSnowDesc()},
	)

	assert.Equal(t, 2, result.TotalResorts)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, store.contacts, 2)
}
