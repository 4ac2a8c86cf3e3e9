package sql

import (
	"testing"

	_ "github.com/lib/pq"
	"github.com/siherrmann/triage/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Initialize database extensions", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		var exists bool
		err = db.Instance.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_extension WHERE extname = 'vector');").Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "pgvector extension should be created")

		exists, err = checkFunctions(db.Instance, InitFunctions)
		require.NoError(t, err)
		assert.True(t, exists, "metadata helper functions should be created")
	})

	t.Run("Initialize database extensions is idempotent", func(t *testing.T) {
		err := Init(db.Instance)
		assert.NoError(t, err)

		err = Init(db.Instance)
		assert.NoError(t, err)
	})
}

func TestMetadataHelpers(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Compare numeric values numerically", func(t *testing.T) {
		var result int
		err := db.Instance.QueryRow(`SELECT compare_metadata_values('9', '10');`).Scan(&result)
		require.NoError(t, err)
		assert.Equal(t, -1, result)
	})

	t.Run("Compare text values bytewise", func(t *testing.T) {
		var result int
		err := db.Instance.QueryRow(`SELECT compare_metadata_values('b', 'a');`).Scan(&result)
		require.NoError(t, err)
		assert.Equal(t, 1, result)

		err = db.Instance.QueryRow(`SELECT compare_metadata_values('2024-01-01', '2024-01-01');`).Scan(&result)
		require.NoError(t, err)
		assert.Equal(t, 0, result)
	})

	t.Run("Number syntax matches the in-memory filter", func(t *testing.T) {
		pairs := [][2]string{
			{"9", "10"},
			{"-1.5", "+2e1"},
			{".5", "0.50"},
			{"NaN", "1"},
			{"Inf", "1"},
			{" 2", "1"},
			{"0x10", "9"},
			{"1,5", "1"},
		}
		for _, pair := range pairs {
			var result int
			err := db.Instance.QueryRow(`SELECT compare_metadata_values($1, $2);`, pair[0], pair[1]).Scan(&result)
			require.NoError(t, err)
			assert.Equal(t, model.CompareMetadataValues(pair[0], pair[1]), result, "Expected %q vs %q to agree", pair[0], pair[1])
		}
	})

	t.Run("Range with open bounds", func(t *testing.T) {
		var inRange bool
		err := db.Instance.QueryRow(`SELECT metadata_in_range('5', '1', NULL);`).Scan(&inRange)
		require.NoError(t, err)
		assert.True(t, inRange)

		err = db.Instance.QueryRow(`SELECT metadata_in_range('5', NULL, '4');`).Scan(&inRange)
		require.NoError(t, err)
		assert.False(t, inRange)

		err = db.Instance.QueryRow(`SELECT metadata_in_range(NULL, NULL, NULL);`).Scan(&inRange)
		require.NoError(t, err)
		assert.False(t, inRange, "missing values never match a range")
	})
}

func TestLoadDocumentsSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load documents SQL functions", func(t *testing.T) {
		err := LoadDocumentsSql(db.Instance, false)
		assert.NoError(t, err)

		exists, err := checkFunctions(db.Instance, DocumentsFunctions)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Load documents SQL is idempotent without force", func(t *testing.T) {
		err := LoadDocumentsSql(db.Instance, false)
		assert.NoError(t, err)
	})

	t.Run("Load documents SQL with force reloads", func(t *testing.T) {
		err := LoadDocumentsSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadEntriesSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load entries SQL functions before the table exists", func(t *testing.T) {
		err := LoadEntriesSql(db.Instance, false)
		assert.NoError(t, err)

		exists, err := checkFunctions(db.Instance, EntriesFunctions)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Load entries SQL with force reloads", func(t *testing.T) {
		err := LoadEntriesSql(db.Instance, true)
		assert.NoError(t, err)
	})
}

func TestLoadAllSql(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Load all SQL functions", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)

		for _, functions := range [][]string{DocumentsFunctions, EntriesFunctions} {
			exists, err := checkFunctions(db.Instance, functions)
			require.NoError(t, err)
			assert.True(t, exists)
		}
	})

	t.Run("Load all SQL is idempotent without force", func(t *testing.T) {
		err := LoadAllSql(db.Instance, false)
		assert.NoError(t, err)
	})
}

func TestCheckFunctions(t *testing.T) {
	db := initDB(t)
	defer db.Close()

	t.Run("Check functions returns false when functions don't exist", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{"nonexistent_function"})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false for nonexistent function")
	})

	t.Run("Check functions returns false when some functions don't exist", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{"metadata_in_range", "nonexistent_function"})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false when some functions don't exist")
	})

	t.Run("Check functions with empty list", func(t *testing.T) {
		exists, err := checkFunctions(db.Instance, []string{})
		assert.NoError(t, err)
		assert.False(t, exists, "Should return false for empty function list")
	})
}

func TestEmbeddedSQL(t *testing.T) {
	t.Run("Init SQL is embedded", func(t *testing.T) {
		assert.Contains(t, initSQL, "CREATE EXTENSION IF NOT EXISTS vector")
	})

	t.Run("Entries SQL is embedded", func(t *testing.T) {
		assert.Contains(t, entriesSQL, "select_entries_by_similarity")
	})

	t.Run("Documents SQL is embedded", func(t *testing.T) {
		assert.Contains(t, documentsSQL, "init_documents")
	})
}
