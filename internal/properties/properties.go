package properties

import (
	"os"
	"runtime"
	"strconv"
)

func RootPath() string {
	return os.Getenv("ROOT_PATH")
}

func CopernicusClientID() string {
	return os.Getenv("COPERNICUS_CLIENT_ID")
}

func CopernicusClientSecret() string {
	return os.Getenv("COPERNICUS_CLIENT_SECRET")
}

func CopernicusTokenURL() string {
	return os.Getenv("COPERNICUS_TOKEN_URL")
}

func CopernicusCatalogURL() string {
	if url := os.Getenv("COPERNICUS_CATALOG_URL"); url != "" {
		return url
	}
	return "https://sh.dataspace.copernicus.eu/api/v1/catalog/1.0.0"
}

func CopernicusProcessURL() string {
	if url := os.Getenv("COPERNICUS_PROCESS_URL"); url != "" {
		return url
	}
	return "https://sh.dataspace.copernicus.eu/api/v1/process"
}

// ExtractionWorkers is the total remote-query concurrency ceiling shared by
// the field-level and date-level pools.
func ExtractionWorkers() int {
	if v, err := strconv.Atoi(os.Getenv("EXTRACTION_WORKERS")); err == nil && v > 0 {
		return v
	}
	return runtime.NumCPU() * 2
}

// FieldWorkers is the share of ExtractionWorkers dedicated to the outer
// field-level pool. The remainder is available for date-chunk parallelism.
func FieldWorkers() int {
	if v, err := strconv.Atoi(os.Getenv("FIELD_WORKERS")); err == nil && v > 0 {
		return v
	}
	return 4
}

func DiscordErrorNotificationUrl() string {
	return os.Getenv("DISCORD_ERROR_NOTIFICATION_URL")
}

func DiscordSuccessNotificationUrl() string {
	return os.Getenv("DISCORD_SUCCESS_NOTIFICATION_URL")
}
