package main

import (
	"context"
	"fmt"
	"log"

	"github.com/textgraph/enricher"
	"github.com/textgraph/enricher/engine/localner"
	"github.com/textgraph/enricher/helper"
	"github.com/textgraph/enricher/model"
)

const sampleContent = `Angela Merkel was the Chancellor of Germany from 2005 to 2021.

She studied physics in Leipzig before entering politics after the fall of the
Berlin Wall. During her time in office she worked closely with institutions
like the European Commission in Brussels and attended countless summits in
Berlin, Paris and Washington.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Local NER engine, downloads the default model on first run
	ner, err := localner.New(localner.Config{}, nil)
	if err != nil {
		log.Fatalf("Failed to create NER engine: %v", err)
	}
	defer ner.Close()

	e, err := enricher.NewEnricher(dbConfig, 384, ner)
	if err != nil {
		log.Fatalf("Failed to create enricher: %v", err)
	}
	defer e.Close()

	// Create a content item and run the enhancement chain on it
	ci := model.NewContentItem(sampleContent, "text/plain", "en")

	fmt.Println("Enhancing content item...")
	numAnnotations, err := e.ProcessAndStoreContentItem(context.Background(), ci)
	if err != nil {
		log.Fatalf("Failed to process content item: %v", err)
	}
	fmt.Printf("Stored %d annotations for %s\n\n", numAnnotations, ci.RID)

	// Read the stored annotations back
	annotations, err := e.Annotations.SelectAnnotationsByContent(ci.RID)
	if err != nil {
		log.Fatalf("Failed to select annotations: %v", err)
	}

	for _, a := range annotations {
		if a.Kind != model.KindText {
			continue
		}
		fmt.Printf("  %q [%d:%d] type=%s engine=%s\n",
			a.SelectedText, a.Start, a.End, a.TypeIRI, a.Engine)
	}
}
