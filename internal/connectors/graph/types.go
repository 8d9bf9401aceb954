package graph

import "time"

// DriveItem is a file, folder or deleted-item entry in a Graph drive.
type DriveItem struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Size                 int64            `json:"size"`
	WebURL               string           `json:"webUrl"`
	ETag                 string           `json:"eTag,omitempty"`
	CTag                 string           `json:"cTag,omitempty"`
	LastModifiedDateTime time.Time        `json:"lastModifiedDateTime"`
	File                 *FileFacet       `json:"file,omitempty"`
	Folder               *FolderFacet     `json:"folder,omitempty"`
	Deleted              *DeletedFacet    `json:"deleted,omitempty"`
	ParentReference      *ItemReference   `json:"parentReference,omitempty"`
}

// IsFolder returns true for folder entries.
func (i *DriveItem) IsFolder() bool {
	return i.Folder != nil
}

// IsDeleted returns true for delta entries that report a removal.
func (i *DriveItem) IsDeleted() bool {
	return i.Deleted != nil
}

// FileFacet contains file-specific metadata.
type FileFacet struct {
	MimeType string `json:"mimeType"`
}

// FolderFacet contains folder-specific metadata.
type FolderFacet struct {
	ChildCount int32 `json:"childCount"`
}

// DeletedFacet marks deleted items in delta responses.
type DeletedFacet struct {
	State string `json:"state"`
}

// ItemReference points at the containing drive and folder.
type ItemReference struct {
	DriveID string `json:"driveId,omitempty"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
}

// ItemPage is a paged drive item listing. NextLink continues the current
// listing; DeltaLink (delta queries only) is the resume position for the
// next sync.
type ItemPage struct {
	Value     []DriveItem `json:"value"`
	NextLink  string      `json:"@odata.nextLink,omitempty"`
	DeltaLink string      `json:"@odata.deltaLink,omitempty"`
}

// User is the Graph profile used for account identification.
type User struct {
	ID                string `json:"id"`
	DisplayName      string `json:"displayName"`
	UserPrincipalName string `json:"userPrincipalName"`
	Mail              string `json:"mail,omitempty"`
}
