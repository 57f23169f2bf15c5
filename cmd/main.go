package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/analysis"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/dataset"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/extract"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/fields"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/imagery"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/notification"
	"github.com/Amatofrancesco99/organic-fertilizers-detection/internal/properties"
	"github.com/common-nighthawk/go-figure"
	bannercolor "github.com/fatih/color"
	"github.com/joho/godotenv"
)

func printBanner() {
	figure1 := figure.NewFigure("Manure", "isometric1", true)
	figure2 := figure.NewFigure("Watch", "isometric1", true)
	bannercolor.Cyan(figure1.String())
	bannercolor.Cyan(figure2.String())
	fmt.Println()
}

func readLine(reader *bufio.Reader, prompt string) string {
	fmt.Printf("\033[34m%s\033[0m", prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func chooseSource(reader *bufio.Reader) (imagery.Source, bool) {
	fmt.Println("\033[32m\nAvailable sources:\033[0m")
	fmt.Println("\033[32m1. sentinel-1 (radar)\033[0m")
	fmt.Println("\033[32m2. sentinel-2 (optical)\033[0m")
	fmt.Println("\033[32m3. landsat-8 (raw bands only)\033[0m")

	switch readLine(reader, "Enter the number of the source: ") {
	case "1":
		return imagery.Sentinel1, true
	case "2":
		return imagery.Sentinel2, true
	case "3":
		return imagery.Landsat8, true
	}
	fmt.Printf("\n\033[31mInvalid choice. Please select a valid source number.\033[0m\n")
	return 0, false
}

func sourceFilters(reader *bufio.Reader, source imagery.Source) imagery.Filters {
	filters := imagery.Filters{MaxCloudCover: -1}
	switch source {
	case imagery.Sentinel1:
		pass := strings.ToUpper(readLine(reader, "Orbit pass (ASCENDING/DESCENDING, empty for both): "))
		if pass == "ASCENDING" || pass == "DESCENDING" {
			filters.OrbitPass = pass
		}
	case imagery.Sentinel2:
		var ceiling int
		if _, err := fmt.Sscanf(readLine(reader, "Max cloud cover percentage (empty for no limit): "), "%d", &ceiling); err == nil {
			filters.MaxCloudCover = ceiling
		}
	}
	return filters
}

func loadFieldsWithLabels() ([]fields.Field, error) {
	geojsonPath := fmt.Sprintf("%s/data/fields/fields.geojson", properties.RootPath())
	result, err := fields.LoadFields(geojsonPath)
	if err != nil {
		return nil, err
	}

	labelsPath := fmt.Sprintf("%s/data/fields/manure_events.csv", properties.RootPath())
	if _, err := os.Stat(labelsPath); err == nil {
		if err := fields.LoadManureEvents(labelsPath, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func extractFeaturesFlow(reader *bufio.Reader) {
	fmt.Println("\033[33m\nWarning:\033[0m")
	fmt.Println("\033[33m- A 'fields.geojson' file should be present in the data/fields folder.\033[0m")
	fmt.Println("\033[33m- The resultant dataset will be created in the data/datasets folder.\n\033[0m")

	allFields, err := loadFieldsWithLabels()
	if err != nil {
		fmt.Printf("\n\033[31mError loading fields: %s\033[0m\n", err.Error())
		return
	}

	source, ok := chooseSource(reader)
	if !ok {
		return
	}

	start, err := time.Parse("2006-01-02", readLine(reader, "Enter the start date (YYYY-MM-DD): "))
	if err != nil {
		fmt.Printf("\n\033[31mInvalid start date.\033[0m\n")
		return
	}
	end, err := time.Parse("2006-01-02", readLine(reader, "Enter the end date, exclusive (YYYY-MM-DD): "))
	if err != nil {
		fmt.Printf("\n\033[31mInvalid end date.\033[0m\n")
		return
	}

	filters := sourceFilters(reader, source)

	platform, err := imagery.NewCopernicus()
	if err != nil {
		fmt.Printf("\n\033[31mError connecting to Copernicus: %s\033[0m\n", err.Error())
		return
	}

	table, failures, err := extract.ExtractFeatures(context.Background(), platform, extract.Request{
		Fields:  allFields,
		Source:  source,
		Start:   start,
		End:     end,
		Filters: filters,
		Budget:  extract.DefaultBudget(),
	})
	if err != nil {
		fmt.Printf("\n\033[31mError extracting features: %s\033[0m\n", err.Error())
		notification.SendDiscordErrorNotification(fmt.Sprintf("Manure Watch CLI\n\nError extracting features: %s", err.Error()))
		return
	}
	for _, failure := range failures {
		fmt.Printf("\033[33mSkipped field %s: %s\033[0m\n", failure.FieldName, failure.Err.Error())
	}

	outputPath := fmt.Sprintf("%s/data/datasets/%s_%s_%s.csv",
		properties.RootPath(), source, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err := table.SaveCSV(outputPath); err != nil {
		fmt.Printf("\n\033[31mError saving dataset: %s\033[0m\n", err.Error())
		notification.SendDiscordErrorNotification(fmt.Sprintf("Manure Watch CLI\n\nError saving dataset: %s", err.Error()))
		return
	}

	fmt.Printf("\n\033[32mExtraction completed!\n Records: %d\n Failed fields: %d\n Dataset located at: %s\033[0m\n", len(table.Records), len(failures), outputPath)
	notification.SendDiscordSuccessNotification(fmt.Sprintf("Manure Watch CLI\n\nExtraction completed!\nRecords: %d\nFailed fields: %d\nDataset located at: %s", len(table.Records), len(failures), outputPath))
}

func rankVariationFlow(reader *bufio.Reader) {
	fmt.Println("\033[33m\nWarning:\033[0m")
	fmt.Println("\033[33m- The input dataset should be a '.csv' file present in the data/datasets folder.\033[0m")
	fmt.Println("\033[33m- Manure dates are read from fields.geojson and data/fields/manure_events.csv.\n\033[0m")

	allFields, err := loadFieldsWithLabels()
	if err != nil {
		fmt.Printf("\n\033[31mError loading fields: %s\033[0m\n", err.Error())
		return
	}

	source, ok := chooseSource(reader)
	if !ok {
		return
	}
	if len(source.Indexes()) == 0 {
		fmt.Printf("\n\033[31mSource %s has no derived features to rank.\033[0m\n", source)
		return
	}

	fileName := readLine(reader, "Enter dataset file name: ")
	table, err := dataset.LoadCSV(fmt.Sprintf("%s/data/datasets/%s", properties.RootPath(), fileName), source)
	if err != nil {
		fmt.Printf("\n\033[31mError loading dataset: %s\033[0m\n", err.Error())
		return
	}

	manureEvents := make(map[string][]time.Time)
	for _, field := range allFields {
		if len(field.ManureDates) > 0 {
			manureEvents[field.Name] = field.ManureDates
		}
	}

	report, err := analysis.RankFeatureVariation(table, manureEvents)
	if err != nil {
		fmt.Printf("\n\033[31mError ranking features: %s\033[0m\n", err.Error())
		return
	}

	fmt.Printf("\n\033[32mFeatures of %s ranked by variation after manure application:\033[0m\n", report.Source)
	for i, feature := range report.Features {
		fmt.Printf("\033[32m%2d. %-12s variation=%.4f t=%.3f n=%d\033[0m\n",
			i+1, feature.Feature, feature.Variation, feature.TStatistic, feature.SampleCount)
	}
}

func listFieldsFlow() {
	fmt.Println("\033[33m\nWarning:\033[0m")
	fmt.Println("\033[33mTo add a new field, add it to the 'fields.geojson' file in the data/fields folder.\033[0m")

	allFields, err := loadFieldsWithLabels()
	if err != nil {
		fmt.Printf("\n\033[31mError loading fields: %s\033[0m\n", err.Error())
		return
	}

	fmt.Println("\n\033[32mAvailable fields:\033[0m")
	for _, field := range allFields {
		lat, lon, err := field.Centroid()
		if err != nil {
			fmt.Printf("\033[31m- %s (invalid polygon)\033[0m\n", field.Name)
			continue
		}
		fmt.Printf("\033[32m- %s (%.5f, %.5f), %d known manure dates\033[0m\n", field.Name, lat, lon, len(field.ManureDates))
	}
}

func initCLI() {
	defer func() {
		if r := recover(); r != nil {
			pc, file, line, ok := runtime.Caller(3)
			var location string
			if ok {
				fn := runtime.FuncForPC(pc)
				location = fmt.Sprintf("%s:%d in %s", file, line, fn.Name())
			} else {
				location = "Unknown location"
			}

			fmt.Printf("\n\033[31mPANIC: %v\033[0m\n", r)
			fmt.Printf("\033[31mLocation: %s\033[0m\n", location)
			fmt.Printf("\033[31mPlease check the input and try again.\033[0m\n")
			fmt.Printf("\033[31mExiting...\033[0m\n")

			stack := debug.Stack()
			errMessage := fmt.Sprintf("Manure Watch CLI panic:\n\n%v\n\nLocation: %s\n\nStack trace:\n%s", r, location, stack)
			err := notification.SendDiscordErrorNotification(errMessage)
			if err != nil {
				fmt.Printf("\033[31mFailed to send notification: %s\033[0m\n", err.Error())
			}
		}
	}()
	printBanner()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println("\033[34m===================\033[0m")
		fmt.Println("\033[34m1. Extract features for all fields\033[0m")
		fmt.Println("\033[34m2. Rank feature variation around manure dates\033[0m")
		fmt.Println("\033[34m3. List available fields\033[0m")
		fmt.Println("\033[34m4. Exit\033[0m")
		fmt.Println("\033[34mEnter your choice:\033[0m")

		var choice int
		_, err := fmt.Scan(&choice)
		if err != nil {
			fmt.Printf("\n\033[31mInvalid input. Please enter a number.\033[0m\n")
			fmt.Scanln()
			continue
		}
		fmt.Scanln()

		switch choice {
		case 1:
			extractFeaturesFlow(reader)
		case 2:
			rankVariationFlow(reader)
		case 3:
			listFieldsFlow()
		case 4:
			println("Exiting...")
			return
		default:
			println("Invalid choice. Please try again.")
		}
	}
}

func main() {
	err := godotenv.Load("../../.env")
	if err != nil {
		err := godotenv.Load("../.env")
		if err != nil {
			fmt.Printf("\033[33mNo .env file found, relying on the environment.\033[0m\n")
		}
	}

	initCLI()
}
