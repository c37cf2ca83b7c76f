package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formcompiler/pkg/metadata"
)

func sampleForm(id string) metadata.FormMetadata {
	minLen := 2
	return metadata.FormMetadata{
		ID:      id,
		Title:   "Contact",
		Version: "1",
		Fields: []metadata.FormField{
			{ID: "f_name", Name: "name", Type: "text", Label: "Name", Required: true, Validation: &metadata.Rules{MinLength: &minLen}},
			{ID: "f_topic", Name: "topic", Type: "select", Options: []metadata.Option{{Value: "sales"}, {Value: "support"}}},
			{ID: "f_detail", Name: "detail", Type: "textarea", Condition: &metadata.Condition{FieldID: "f_topic", Operator: "equals", Value: "support"}},
		},
	}
}

func setupRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisWithClient(client, "test:")
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "contact")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, sampleForm("contact")))
	require.NoError(t, s.Put(ctx, sampleForm("about")))
	assert.ErrorIs(t, s.Put(ctx, sampleForm(" ")), ErrMissingID)

	got, err := s.Get(ctx, "contact")
	require.NoError(t, err)
	assert.Equal(t, sampleForm("contact"), got)

	ids, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"about", "contact"}, ids)

	require.NoError(t, s.Delete(ctx, "about"))
	assert.ErrorIs(t, s.Delete(ctx, "about"), ErrNotFound)

	ids, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"contact"}, ids)
}

func TestMemory_RoundTrip(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(sampleForm("contact"))

	got, err := m.Get(ctx, "contact")
	require.NoError(t, err)
	got.Fields[0].Label = "changed"

	again, err := m.Get(ctx, "contact")
	require.NoError(t, err)
	assert.Equal(t, "Name", again.Fields[0].Label)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = m.List(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRedis_RoundTrip(t *testing.T) {
	s, _ := setupRedis(t)
	exerciseStore(t, s)
}

func TestRedis_KeyLayout(t *testing.T) {
	s, mr := setupRedis(t)
	require.NoError(t, s.Put(context.Background(), sampleForm("contact")))

	assert.True(t, mr.Exists("test:form:contact"))
	members, err := mr.Members("test:forms")
	require.NoError(t, err)
	assert.Equal(t, []string{"contact"}, members)
}

func TestRedis_CorruptPayload(t *testing.T) {
	s, mr := setupRedis(t)
	require.NoError(t, mr.Set("test:form:broken", "{not json"))

	_, err := s.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewRedis_ConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(context.Background(), RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestNewRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedis(context.Background(), RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, DefaultPrefix, s.prefix)
}
