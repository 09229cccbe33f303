// services/path_service.go
package services

import (
	"errors"
	"strings"

	"omnidrive/models"
	"omnidrive/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PathService owns the hierarchical path invariants: path construction,
// per-owner collision detection, parent validity and cycle prevention.
// Paths are denormalized; every operation that changes a node's place
// in the tree goes through here.
type PathService struct{}

func NewPathService() *PathService {
	return &PathService{}
}

// ResolvePath builds a child path from its parent. Root-level nodes get
// a leading separator and no parent segment.
func (s *PathService) ResolvePath(parent *models.File, name string) string {
	if parent == nil {
		return "/" + name
	}
	return strings.TrimRight(parent.Path, "/") + "/" + name
}

// ValidateParentFolder checks that the designated parent exists and is
// a folder. A bad parent is a validation problem, not a lookup problem.
func (s *PathService) ValidateParentFolder(tx *gorm.DB, parentID uuid.UUID) (*models.File, error) {
	var parent models.File
	if err := tx.First(&parent, "id = ?", parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ValidationError("parent folder does not exist")
		}
		return nil, err
	}
	if !parent.IsFolder() {
		return nil, utils.ValidationError("parent must be a folder")
	}
	return &parent, nil
}

// EnsureNoCollision enforces that (parent, name) is unique within one
// owner's scope.
func (s *PathService) EnsureNoCollision(tx *gorm.DB, ownerID uuid.UUID, parentID *uuid.UUID, name string) error {
	query := tx.Model(&models.File{}).Where("owner_id = ? AND name = ?", ownerID, name)
	if parentID != nil {
		query = query.Where("parent_id = ?", *parentID)
	} else {
		query = query.Where("parent_id IS NULL")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return utils.ConflictError("an entry named %q already exists here", name)
	}
	return nil
}

// EnsureNotDescendant walks the ancestor chain of newParentID and fails
// if nodeID appears in it. Acyclicity is enforced here, on every
// reparent, rather than relying on the schema.
func (s *PathService) EnsureNotDescendant(tx *gorm.DB, nodeID, newParentID uuid.UUID) error {
	if nodeID == newParentID {
		return utils.ValidationError("a folder cannot be moved into itself")
	}

	seen := map[uuid.UUID]bool{}
	current := newParentID
	for {
		if seen[current] {
			// Corrupted chain; refuse rather than loop.
			return utils.ValidationError("parent chain contains a cycle")
		}
		seen[current] = true

		var node models.File
		if err := tx.Select("id", "parent_id").First(&node, "id = ?", current).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		if node.ParentID == nil {
			return nil
		}
		if *node.ParentID == nodeID {
			return utils.ValidationError("a folder cannot be moved into its own descendant")
		}
		current = *node.ParentID
	}
}

// Descendants resolves the full subtree below rootID, breadth-first.
// The returned slice does not include the root itself.
func (s *PathService) Descendants(tx *gorm.DB, rootID uuid.UUID) ([]models.File, error) {
	var all []models.File
	frontier := []uuid.UUID{rootID}

	for len(frontier) > 0 {
		var children []models.File
		if err := tx.Where("parent_id IN ?", frontier).Find(&children).Error; err != nil {
			return nil, err
		}
		if len(children) == 0 {
			break
		}

		frontier = frontier[:0]
		for _, child := range children {
			frontier = append(frontier, child.ID)
		}
		all = append(all, children...)
	}

	return all, nil
}

// RebasePaths rewrites the stored paths of every descendant after a
// rename or move, within the caller's transaction, preserving the path
// invariant in one operation.
func (s *PathService) RebasePaths(tx *gorm.DB, oldPrefix, newPrefix string, descendants []models.File) error {
	for i := range descendants {
		node := &descendants[i]
		if !strings.HasPrefix(node.Path, oldPrefix+"/") {
			continue
		}
		newPath := newPrefix + strings.TrimPrefix(node.Path, oldPrefix)
		if err := tx.Model(&models.File{}).Where("id = ?", node.ID).
			UpdateColumn("path", newPath).Error; err != nil {
			return err
		}
	}
	return nil
}
