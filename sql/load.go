// Package sql embeds the Postgres function files of the enricher
// schema and loads them into a database. Each table has its own file;
// the database handlers call the functions instead of inline SQL.
package sql

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log"
)

//go:embed init.sql
var initSQL string

//go:embed contentitems.sql
var contentItemsSQL string

//go:embed annotations.sql
var annotationsSQL string

//go:embed entityindex.sql
var entityIndexSQL string

// Function lists for verification
var ContentItemsFunctions = []string{
	"init_contentitems",
	"insert_contentitem",
	"select_contentitem",
	"select_contentitem_by_uri",
	"select_all_contentitems",
	"update_contentitem_metadata",
	"delete_contentitem",
}

var AnnotationsFunctions = []string{
	"init_annotations",
	"insert_annotation",
	"select_annotation",
	"select_annotations_by_content",
	"select_annotations_by_engine",
	"select_annotations_by_reference",
	"delete_annotations_by_content",
}

var EntityIndexFunctions = []string{
	"init_entityindex",
	"upsert_entity",
	"select_entity",
	"select_entities_by_similarity",
	"search_entities",
	"delete_entity",
}

// Init intializes db extensions
func Init(db *sql.DB) error {
	_, err := db.Exec(initSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	log.Println("Database extensions initialized successfully")
	return nil
}

// LoadContentItemsSql loads content item related SQL functions
func LoadContentItemsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "contentitems", contentItemsSQL, ContentItemsFunctions, force)
}

// LoadAnnotationsSql loads annotation-related SQL functions
func LoadAnnotationsSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "annotations", annotationsSQL, AnnotationsFunctions, force)
}

// LoadEntityIndexSql loads entity index related SQL functions
func LoadEntityIndexSql(db *sql.DB, force bool) error {
	return loadFunctions(db, "entityindex", entityIndexSQL, EntityIndexFunctions, force)
}

// LoadAllSql loads all SQL functions
func LoadAllSql(db *sql.DB, force bool) error {
	if err := LoadContentItemsSql(db, force); err != nil {
		return err
	}

	if err := LoadAnnotationsSql(db, force); err != nil {
		return err
	}

	if err := LoadEntityIndexSql(db, force); err != nil {
		return err
	}

	return nil
}

func loadFunctions(db *sql.DB, name string, script string, sqlFunctions []string, force bool) error {
	if !force {
		exist, err := checkFunctions(db, sqlFunctions)
		if err != nil {
			return fmt.Errorf("error checking existing %s functions: %w", name, err)
		}
		if exist {
			return nil
		}
	}

	_, err := db.Exec(script)
	if err != nil {
		return fmt.Errorf("error executing %s SQL: %w", name, err)
	}

	exist, err := checkFunctions(db, sqlFunctions)
	if err != nil {
		return fmt.Errorf("error checking existing functions: %w", err)
	}
	if !exist {
		return fmt.Errorf("not all required SQL functions were created")
	}

	log.Printf("SQL %s functions loaded successfully", name)
	return nil
}

// checkFunctions verifies that all required functions exist in the database
func checkFunctions(db *sql.DB, sqlFunctions []string) (bool, error) {
	var allExist bool
	for _, f := range sqlFunctions {
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_proc WHERE proname = $1);`,
			f,
		).Scan(&allExist)
		if err != nil {
			return false, fmt.Errorf("error checking existence of function %s: %w", f, err)
		}
		if !allExist {
			log.Printf("Function %s does not exist", f)
			break
		}
	}
	return allExist, nil
}
