// card_preview fills one cue card from a template and a record JSON file,
// without touching the network. Useful for checking a template's placeholder
// names before a live run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gnemet/CueForge/internal/pptx"
)

func main() {
	templatePath := flag.String("template", "", "Path to the cue card PPTX template")
	outputPath := flag.String("output", "", "Path for the filled PPTX")
	dataFile := flag.String("data", "", "Path to a record JSON file (field name -> text)")
	imagePath := flag.String("image", "", "Optional product image to place into product_image")
	flag.Parse()

	if *templatePath == "" || *outputPath == "" {
		fmt.Println("Usage: go run scripts/card_preview/main.go -template <path> -output <path> -data <json> [-image <path>]")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*templatePath)
	if err != nil {
		log.Fatalf("Error reading template: %v", err)
	}
	tpl, err := pptx.Load(raw)
	if err != nil {
		log.Fatalf("Error loading template: %v", err)
	}
	fmt.Printf("Template shapes: %v\n", tpl.ShapeNames())

	data := map[string]string{}
	if *dataFile != "" {
		bytes, err := os.ReadFile(*dataFile)
		if err != nil {
			log.Fatalf("Error reading data file: %v", err)
		}
		if err := json.Unmarshal(bytes, &data); err != nil {
			log.Fatalf("Error parsing JSON data: %v", err)
		}
	}

	deck := pptx.NewDeck(tpl)
	for name, text := range data {
		if !deck.SetText(0, name, text) {
			fmt.Printf("Warning: no text shape named %q\n", name)
		}
	}

	if *imagePath != "" {
		img, err := os.ReadFile(*imagePath)
		if err != nil {
			log.Fatalf("Error reading image: %v", err)
		}
		if !deck.ReplaceImage(0, "product_image", img) {
			fmt.Println("Warning: no shape named \"product_image\"")
		}
	}

	out, err := deck.Save()
	if err != nil {
		log.Fatalf("Error saving card: %v", err)
	}
	if err := os.WriteFile(*outputPath, out, 0644); err != nil {
		log.Fatalf("Error writing output: %v", err)
	}
	fmt.Printf("Successfully generated card: %s\n", *outputPath)
}
