// Generates sample supplier price lists for manual testing: a CSV and an
// XLSX with the same layout, including subtitle section rows and a few
// duplicate EANs so the importer's dedup path has something to chew on.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
)

type priceRow struct {
	ean      string
	name     string
	desc     string
	price    string
	quantity string
	material string
}

func main() {
	outDir := flag.String("out", "testdata", "output directory")
	rows := flag.Int("rows", 200, "number of product rows")
	seed := flag.Int64("seed", 0, "random seed, 0 picks one")
	flag.Parse()

	gofakeit.Seed(*seed)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	records, duplicates := generateRows(*rows)

	csvPath := filepath.Join(*outDir, "acme_prices_sample.csv")
	if err := writeCSV(csvPath, records); err != nil {
		log.Fatalf("Failed to write CSV: %v", err)
	}
	fmt.Printf("Generated %s\n", csvPath)

	xlsxPath := filepath.Join(*outDir, "acme_prices_sample.xlsx")
	if err := writeXLSX(xlsxPath, records); err != nil {
		log.Fatalf("Failed to write XLSX: %v", err)
	}
	fmt.Printf("Generated %s\n", xlsxPath)

	fmt.Printf("%d product rows, %d duplicate EANs, subtitle row every 25 rows\n", *rows, duplicates)
}

// generateRows produces the full cell grid: a header, a Brand subtitle row
// every 25 products and roughly 3% duplicated EANs.
func generateRows(count int) ([][]string, int) {
	records := [][]string{
		{"EAN", "Name", "Description", "Price", "Quantity", "Material"},
	}

	var eans []string
	duplicates := 0
	for i := 0; i < count; i++ {
		if i%25 == 0 {
			records = append(records, []string{"Brand: " + gofakeit.Company(), "", "", "", "", ""})
		}

		row := randomProduct()
		if len(eans) > 0 && gofakeit.Number(1, 100) <= 3 {
			row.ean = gofakeit.RandomString(eans)
			duplicates++
		} else {
			eans = append(eans, row.ean)
		}
		records = append(records, []string{row.ean, row.name, row.desc, row.price, row.quantity, row.material})
	}
	return records, duplicates
}

func randomProduct() priceRow {
	price := gofakeit.Price(0.5, 900)
	priceText := strconv.FormatFloat(price, 'f', 2, 64)
	// A few rows use a comma decimal separator, like real European exports
	if gofakeit.Number(1, 10) == 1 {
		priceText = fmt.Sprintf("%d,%02d", int(price), int(price*100)%100)
	}

	return priceRow{
		ean:      gofakeit.Numerify("#############"),
		name:     gofakeit.ProductName(),
		desc:     gofakeit.Sentence(8),
		price:    priceText,
		quantity: strconv.Itoa(gofakeit.Number(0, 500)),
		material: gofakeit.ProductMaterial(),
	}
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	writer.Comma = ';'
	defer writer.Flush()

	return writer.WriteAll(records)
}

func writeXLSX(path string, records [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Sheet1"
	for r, record := range records {
		for c, value := range record {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}
