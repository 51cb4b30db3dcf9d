package model

import "time"

// Album represents a row in the `albums` table.  TypeName comes from the
// joined album_types row and falls back to UncategorizedTypeName.
type Album struct {
	ID          uint64    `json:"id"`          // albums.id
	Title       string    `json:"title"`       // albums.title
	CoverPath   string    `json:"coverPath"`   // albums.cover_path
	Describe    string    `json:"describe"`    // albums.describe
	Type        uint64    `json:"type"`        // albums.type_id
	LoopPicPath string    `json:"loopPicPath"` // albums.loop_pic_path, comma separated
	CreateTime  time.Time `json:"createTime"`  // albums.create_time
	UpdateTime  time.Time `json:"updateTime"`  // albums.update_time
	TypeName    string    `json:"typeName"`    // album_types.name
}

// AlbumType is a row in the `album_types` table.
type AlbumType struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// UncategorizedTypeName is shown for albums whose type row is missing.
const UncategorizedTypeName = "未分类"

// AlbumQuery selects one page of albums.
type AlbumQuery struct {
	PageNum   int
	PageSize  int
	SortBy    string // id | createTime | updateTime
	SortOrder string // asc | desc
}

// Page describes the pagination envelope returned with album listings.
type Page struct {
	PageNum    int    `json:"pageNum"`
	PageSize   int    `json:"pageSize"`
	TotalItems int    `json:"totalItems"`
	TotalPages int    `json:"totalPages"`
	SortBy     string `json:"sortBy"`
	SortOrder  string `json:"sortOrder"`
}
