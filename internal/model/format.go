package model

// FormatID is a format tag as used by the lending service. The vocabulary is
// owned by the service and treated here as a fixed contract.
type FormatID string

const (
	FormatAudioBookMP3       FormatID = "audiobook-mp3"
	FormatAudioBookOverDrive FormatID = "audiobook-overdrive"
	FormatEBookEPubAdobe     FormatID = "ebook-epub-adobe"
	FormatEBookEPubOpen      FormatID = "ebook-epub-open"
	FormatEBookPDFAdobe      FormatID = "ebook-pdf-adobe"
	FormatEBookPDFOpen       FormatID = "ebook-pdf-open"
	FormatEBookKobo          FormatID = "ebook-kobo"
	FormatEBookKindle        FormatID = "ebook-kindle"
	FormatEBookOverDrive     FormatID = "ebook-overdrive"
	FormatEBookOverDriveProv FormatID = "ebook-overdrive-provisional"
	FormatMagazineOverDrive  FormatID = "magazine-overdrive"
)

type MediaType string

const (
	MediaTypeEBook     MediaType = "ebook"
	MediaTypeMagazine  MediaType = "magazine"
	MediaTypeAudiobook MediaType = "audiobook"
)

// downloadableFormats are the artifact types that can actually be fetched and
// attached to a collection record.
var downloadableFormats = map[FormatID]struct{}{
	FormatEBookEPubAdobe:    {},
	FormatEBookEPubOpen:     {},
	FormatEBookPDFAdobe:     {},
	FormatEBookPDFOpen:      {},
	FormatMagazineOverDrive: {},
}

var openFormats = map[FormatID]struct{}{
	FormatEBookEPubOpen: {},
	FormatEBookPDFOpen:  {},
}

func (f FormatID) IsDownloadable() bool {
	_, ok := downloadableFormats[f]
	return ok
}

func (f FormatID) IsOpen() bool {
	_, ok := openFormats[f]
	return ok
}

// FileExtension maps a format tag to the extension of the fulfilled artifact.
// Adobe DRM formats are fulfilled as .acsm license files.
func (f FormatID) FileExtension() string {
	switch f {
	case FormatEBookEPubAdobe, FormatEBookPDFAdobe:
		return "acsm"
	case FormatEBookPDFOpen:
		return "pdf"
	case FormatEBookEPubOpen, FormatEBookOverDrive, FormatMagazineOverDrive:
		return "epub"
	case FormatAudioBookMP3:
		return "mp3"
	default:
		return ""
	}
}
