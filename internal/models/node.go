package models

import (
	"fmt"
	"strings"
	"time"
)

// NodeType identifies the primary type of a content repository node.
type NodeType string

const (
	NodeTypeFolder NodeType = "sling:Folder"
	NodeTypeFile   NodeType = "nt:file"
)

// MediaTypeSource records how a file node's mime type was determined.
type MediaTypeSource string

const (
	MediaTypeSourceDeclared MediaTypeSource = "declared"
	MediaTypeSourceSniffed  MediaTypeSource = "sniffed"
	MediaTypeSourceUnknown  MediaTypeSource = "unknown"
)

var validNodeTypes = map[NodeType]struct{}{
	NodeTypeFolder: {},
	NodeTypeFile:   {},
}

var validMediaTypeSources = map[MediaTypeSource]struct{}{
	MediaTypeSourceDeclared: {},
	MediaTypeSourceSniffed:  {},
	MediaTypeSourceUnknown:  {},
}

// Node is one path-addressable entry in the content repository.
// File nodes carry a blob reference and resource properties; folders do not.
type Node struct {
	Path            string     `json:"path"`
	ParentPath      string     `json:"parent_path,omitempty"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Referenceable   bool       `json:"referenceable,omitempty"`
	UUID            string     `json:"uuid,omitempty"`
	MimeType        string     `json:"mime_type,omitempty"`
	MediaTypeSource string     `json:"media_type_source,omitempty"`
	BlobID          string     `json:"blob_id,omitempty"`
	SizeBytes       int64      `json:"size_bytes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	LastModified    *time.Time `json:"last_modified,omitempty"`
}

// IsFolder reports whether the node can hold children.
func (n Node) IsFolder() bool {
	return n.Type == string(NodeTypeFolder)
}

// IsFile reports whether the node holds binary content.
func (n Node) IsFile() bool {
	return n.Type == string(NodeTypeFile)
}

func ParseNodeType(raw string) (NodeType, error) {
	value := NodeType(strings.TrimSpace(raw))
	if value == "" {
		return "", fmt.Errorf("node type is required")
	}
	if _, ok := validNodeTypes[value]; !ok {
		return "", fmt.Errorf("invalid node type: %s", value)
	}
	return value, nil
}

func ParseMediaTypeSource(raw string) (MediaTypeSource, error) {
	value := MediaTypeSource(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("media_type_source is required")
	}
	if _, ok := validMediaTypeSources[value]; !ok {
		return "", fmt.Errorf("invalid media_type_source: %s", value)
	}
	return value, nil
}
