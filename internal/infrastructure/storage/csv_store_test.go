package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k-shtanenko/weather-app/weather-poller/internal/domain/entities"
)

const header = "timestamp,city,temperature,humidity,weather"

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func reading(city string, temp float64, at time.Time) *entities.Reading {
	return entities.NewReading(city, temp, 77, "Scattered clouds", at)
}

func TestStore_Append(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

	t.Run("header written for new file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather_data.csv")
		store := NewStore(path, nil)

		require.NoError(t, store.Append(context.Background(), reading("Manila", 28.5, at)))

		lines := readLines(t, path)
		assert.Equal(t, []string{
			header,
			"2024-03-09 14:05:07,Manila,28.5,77,Scattered clouds",
		}, lines)
	})

	t.Run("header written for empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather_data.csv")
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		store := NewStore(path, nil)
		require.NoError(t, store.Append(context.Background(), reading("Manila", 28.5, at)))

		lines := readLines(t, path)
		require.Len(t, lines, 2)
		assert.Equal(t, header, lines[0])
	})

	t.Run("no header for non-empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather_data.csv")
		existing := "2024-03-09 13:00:00,Manila,27,80,Clear sky\n"
		require.NoError(t, os.WriteFile(path, []byte(existing), 0o644))

		store := NewStore(path, nil)
		require.NoError(t, store.Append(context.Background(), reading("Manila", 28.5, at)))

		lines := readLines(t, path)
		assert.Equal(t, []string{
			"2024-03-09 13:00:00,Manila,27,80,Clear sky",
			"2024-03-09 14:05:07,Manila,28.5,77,Scattered clouds",
		}, lines)
	})

	t.Run("appends never overwrite prior rows", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather_data.csv")
		store := NewStore(path, nil)
		ctx := context.Background()

		require.NoError(t, store.Append(ctx, reading("Manila", 28.5, at)))
		before, err := os.ReadFile(path)
		require.NoError(t, err)

		require.NoError(t, store.Append(ctx, reading("Tokyo", 12, at.Add(time.Minute))))
		after, err := os.ReadFile(path)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(string(after), string(before)))

		lines := readLines(t, path)
		require.Len(t, lines, 3)
		assert.NotEqual(t, lines[1], lines[2])
		assert.Equal(t, "2024-03-09 14:06:07,Tokyo,12,77,Scattered clouds", lines[2])
	})

	t.Run("creates missing directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "nested", "weather.csv")
		store := NewStore(path, nil)

		require.NoError(t, store.Append(context.Background(), reading("Manila", 28.5, at)))
		assert.FileExists(t, path)
	})

	t.Run("descriptions with commas are quoted", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather.csv")
		store := NewStore(path, nil)

		r := entities.NewReading("Manila", 30, 60, "Rain, heavy", at)
		require.NoError(t, store.Append(context.Background(), r))

		lines := readLines(t, path)
		assert.Equal(t, `2024-03-09 14:05:07,Manila,30,60,"Rain, heavy"`, lines[1])
	})

	t.Run("nil reading", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "weather.csv"), nil)
		assert.Error(t, store.Append(context.Background(), nil))
	})

	t.Run("cancelled context writes nothing", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather.csv")
		store := NewStore(path, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, store.Append(ctx, reading("Manila", 1, at)), context.Canceled)
		assert.NoFileExists(t, path)
	})
}

func TestStore_ReadAll(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "absent.csv"), nil)

		readings, err := store.ReadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, readings)
	})

	t.Run("reads back appended rows", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "weather.csv"), nil)
		require.NoError(t, store.Append(ctx, reading("Manila", 28.5, at)))
		require.NoError(t, store.Append(ctx, entities.NewReading("Tokyo", -3, 40, "Snow, light", at.Add(time.Minute))))

		readings, err := store.ReadAll(ctx)
		require.NoError(t, err)
		require.Len(t, readings, 2)

		assert.Equal(t, "Manila", readings[0].City)
		assert.Equal(t, 28.5, readings[0].Temperature)
		assert.Equal(t, "Snow, light", readings[1].Weather)
		assert.True(t, readings[1].Timestamp.Equal(at.Add(time.Minute)))
	})

	t.Run("headerless file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather.csv")
		require.NoError(t, os.WriteFile(path, []byte("2024-03-09 13:00:00,Manila,27,80,Clear sky\n"), 0o644))

		readings, err := NewStore(path, nil).ReadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, readings, 1)
	})

	t.Run("corrupt row", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "weather.csv")
		content := header + "\n2024-03-09 13:00:00,Manila,hot,80,Clear sky\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		_, err := NewStore(path, nil).ReadAll(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})
}
