package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

const (
	MimeCSV  = "text/csv"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimePNG  = "image/png"
)

// MaxImportBytes caps uploaded question bank files.
const MaxImportBytes = 5 << 20

// AllowedQuestionCounts lists the quiz lengths a player may pick.
var AllowedQuestionCounts = []int{3, 5, 10, 15, 20}

func ValidQuestionCount(n int) bool {
	for _, c := range AllowedQuestionCounts {
		if c == n {
			return true
		}
	}
	return false
}
