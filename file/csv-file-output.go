package file

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"regexp"

	"github.com/pkg/errors"
	"github.com/relloyd/obspipe/logger"
)

var reGzipExtension = regexp.MustCompile(`^(.*?)(\.*)(?i)(gzip|gz){0,}$`) // remove multiple leading '.' and trailing (case insensitive) "gz|gzip"

// CSVFileOutput is a Writer that outputs to an OS file that rotates after a number of rows or bytes.
// It is used to stage typed records before they are copied into a warehouse table.
type CSVFileOutput struct {
	csvWriter         *csv.Writer
	log               logger.Logger
	directory         string
	ownsDirectory     bool // true when directory was created in temp space and should be removed by RemoveAll.
	prefix            string
	extension         string
	headerRecord      []string
	currentSuffixID   int
	currentName       string
	file              *os.File
	gzWriter          *gzip.Writer
	fWriter           *bufio.Writer
	useGzip           bool
	maxFileRows       int
	currentRowCount   int
	totalRowCount     int
	maxFileBytes      int
	currentBytesCount int
	needNewCSVFile    bool
	ListOfOutputFiles []string
}

// NewCSVFileOutput creates a new CSV file struct. Supply a valid directory or empty string to use a new temp directory.
// Set maxFileRows to the number of rows you want in the CSV file (excluding the header) or 0 to only generate one file.
// Set maxFileBytes to the approx number of bytes you want in the CSV file - only checked per row written.
// Setting maxFileBytes > 0 will cause each row to be flushed to the CSV file so this causes slower performance.
// Setting useGzip will use gzip compression and make the extension end with '.gz'.
func NewCSVFileOutput(log logger.Logger, outputDirectory string, fileNamePrefix string, fileNameExtension string, maxFileRows int, maxFileBytes int, useGzip bool) (*CSVFileOutput, error) {
	f := &CSVFileOutput{
		log:            log,
		directory:      outputDirectory,
		prefix:         fileNamePrefix,
		extension:      fileNameExtension,
		maxFileRows:    maxFileRows,
		maxFileBytes:   maxFileBytes,
		useGzip:        useGzip,
		needNewCSVFile: true,
	}
	if f.directory == "" {
		var err error
		if f.directory, err = ioutil.TempDir("", "obspipe-stage-"); err != nil {
			return nil, errors.Wrap(err, "error creating temp directory for CSV files")
		}
		f.ownsDirectory = true
	}
	if useGzip {
		f.extension = reGzipExtension.ReplaceAllString(f.extension, "$1.gz")
	}
	log.Debug("CSVFileOutput file prefix=", f.prefix, "; extension=", f.extension, "; maxFileRows=", f.maxFileRows, "; maxFileBytes=", f.maxFileBytes, "; useGzip=", f.useGzip)
	return f, nil
}

// Write implements io.Writer for the csv.Writer and counts bytes written to the current file.
// Signals that we need to rotate the CSV file if f.maxFileBytes > 0.
func (f *CSVFileOutput) Write(p []byte) (n int, err error) {
	if f.useGzip {
		n, err = f.fWriter.Write(p)
	} else {
		n, err = f.file.Write(p)
	}
	f.currentBytesCount += n
	if rotateCheck(f.maxFileBytes, f.currentBytesCount) {
		f.needNewCSVFile = true
	}
	return n, err
}

// SetHeader will store the supplied record for output in each created CSV file.
func (f *CSVFileOutput) SetHeader(record []string) {
	f.headerRecord = record
}

// WriteToCSV writes record to the current CSV file, rotating first if required.
// It returns the name of the new file when one is created, else "".
func (f *CSVFileOutput) WriteToCSV(record []string) (fileName string, err error) {
	if f.needNewCSVFile {
		if err = f.closeCSVFileAndReset(); err != nil {
			return "", err
		}
		if err = f.createNewCSVWriter(); err != nil {
			return "", err
		}
		fileName = f.currentName
		if f.headerRecord != nil {
			if err = f.csvWriter.Write(f.headerRecord); err != nil {
				return "", errors.Wrap(err, "unable to write header to CSV file")
			}
		}
	}
	if err = f.csvWriter.Write(record); err != nil {
		return "", errors.Wrap(err, "unable to write to CSV file")
	}
	if f.maxFileBytes > 0 { // if we are checking file size limits...
		// Flush each line so f.Write() maintains an accurate byte count.
		f.csvWriter.Flush()
	}
	f.currentRowCount++
	f.totalRowCount++
	if rotateCheck(f.maxFileRows, f.currentRowCount) {
		f.needNewCSVFile = true
	}
	return fileName, nil
}

// TotalRows returns the number of records written across all files.
func (f *CSVFileOutput) TotalRows() int {
	return f.totalRowCount
}

func rotateCheck(maxCount int, currentCount int) bool {
	return maxCount > 0 && currentCount >= maxCount
}

// Close flushes the CSV writer and closes the current OS file.
// Files are left on disk until RemoveAll is called.
func (f *CSVFileOutput) Close() error {
	return f.closeCSVFileAndReset()
}

// RemoveAll closes the writer and deletes every file written, plus the temp directory if one was created.
func (f *CSVFileOutput) RemoveAll() error {
	err := f.Close()
	for _, name := range f.ListOfOutputFiles {
		if e := os.Remove(name); e != nil && !os.IsNotExist(e) && err == nil {
			err = e
		}
	}
	if f.ownsDirectory {
		if e := os.RemoveAll(f.directory); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// closeCSVFileAndReset will flush the CSV writer and close the OS file.
// It will flag that a new file is required at next write time.
func (f *CSVFileOutput) closeCSVFileAndReset() error {
	if f.file != nil {
		f.csvWriter.Flush()
		if err := f.csvWriter.Error(); err != nil {
			return err
		}
		if f.useGzip {
			if err := f.fWriter.Flush(); err != nil {
				return err
			}
			if err := f.gzWriter.Close(); err != nil {
				return err
			}
		}
		if err := f.file.Close(); err != nil {
			return fmt.Errorf("unable to close OS file %v: %w", f.currentName, err)
		}
		f.file = nil
	}
	f.needNewCSVFile = true
	f.currentRowCount = 0
	f.currentBytesCount = 0
	return nil
}

func (f *CSVFileOutput) createNewCSVWriter() error {
	f.getNextFileName()
	f.log.Debug("Creating new CSV file '", f.currentName, "'")
	var err error
	if f.file, err = os.Create(f.currentName); err != nil {
		return fmt.Errorf("unable to create OS file with name %v: %w", f.currentName, err)
	}
	if f.useGzip {
		f.gzWriter = gzip.NewWriter(f.file)
		f.fWriter = bufio.NewWriter(f.gzWriter) // now we must Write() to this instead of the os file.
	}
	f.csvWriter = csv.NewWriter(f)
	f.needNewCSVFile = false
	return nil
}

// getNextFileName generates a new file name in currentName in this struct.
// It also stores the history of these files in ListOfOutputFiles.
func (f *CSVFileOutput) getNextFileName() {
	f.currentSuffixID++
	f.currentName = path.Join(f.directory, fmt.Sprintf("%v_%06d.%v", f.prefix, f.currentSuffixID, f.extension))
	f.ListOfOutputFiles = append(f.ListOfOutputFiles, f.currentName)
}
