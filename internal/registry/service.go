// ============================================================================
// internal/registry/service.go
// Institute, class, and user directory management over MongoDB
// ============================================================================

package registry

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"markregister/internal/shared"
)

const queryTimeout = 10 * time.Second

// Service implements the directory operations
type Service struct {
	db            *mongo.Database
	institutesCol *mongo.Collection
	classesCol    *mongo.Collection
	usersCol      *mongo.Collection
}

// NewService creates a new registry Service instance
func NewService(db *mongo.Database) *Service {
	return &Service{
		db:            db,
		institutesCol: db.Collection(shared.ColInstitutes),
		classesCol:    db.Collection(shared.ColClasses),
		usersCol:      db.Collection(shared.ColUsers),
	}
}

// ============================================================================
// Institute Management
// ============================================================================

// CreateInstituteRequest is the payload for institute registration
type CreateInstituteRequest struct {
	Name          string         `json:"name"`
	InstituteCode string         `json:"instituteCode"`
	Type          string         `json:"type"`
	Address       shared.Address `json:"address"`
	Contact       shared.Contact `json:"contact"`
	Logo          string         `json:"logo"`
}

// CreateInstitute registers a new institute with a unique code
func (s *Service) CreateInstitute(ctx context.Context, req *CreateInstituteRequest) (*shared.Institute, error) {
	if req == nil || req.Name == "" || req.InstituteCode == "" {
		return nil, shared.InvalidArgumentf("name and institute code are required")
	}
	if req.Type != "" && !shared.IsValidInstituteType(req.Type) {
		return nil, shared.InvalidArgumentf("invalid institute type %q", req.Type)
	}

	// Check duplicates
	count, err := shared.CountDocumentsWithTimeout(ctx, s.institutesCol, bson.M{"institute_code": req.InstituteCode}, queryTimeout)
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	if count > 0 {
		return nil, shared.AlreadyExistsf("institute code %s already registered", req.InstituteCode)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	institute := shared.Institute{
		ID:            shared.GenerateInstituteID(),
		Name:          req.Name,
		InstituteCode: req.InstituteCode,
		Type:          req.Type,
		Address:       req.Address,
		Contact:       req.Contact,
		Logo:          req.Logo,
		CreatedAt:     time.Now(),
	}

	if _, err := s.institutesCol.InsertOne(queryCtx, institute); err != nil {
		return nil, shared.Internalf("failed to create institute: %v", err)
	}

	log.Printf("INFO: institute %s (%s) registered", institute.Name, institute.InstituteCode)
	return &institute, nil
}

// GetInstitute fetches one institute by ID
func (s *Service) GetInstitute(ctx context.Context, id string) (*shared.Institute, error) {
	var institute shared.Institute
	err := shared.FindOneWithTimeout(ctx, s.institutesCol, bson.M{"_id": id}, &institute, queryTimeout)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, shared.NotFoundf("institute %s not found", id)
		}
		return nil, shared.Internalf("database error: %v", err)
	}
	return &institute, nil
}

// ListInstitutes returns all registered institutes
func (s *Service) ListInstitutes(ctx context.Context) ([]shared.Institute, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.institutesCol.Find(queryCtx, bson.M{}, shared.BuildFindOptions(0, "name", 1))
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	defer cursor.Close(queryCtx)

	var institutes []shared.Institute
	if err := cursor.All(queryCtx, &institutes); err != nil {
		return nil, shared.Internalf("failed to decode institutes: %v", err)
	}
	return institutes, nil
}

// UpdateInstitute patches mutable institute fields
func (s *Service) UpdateInstitute(ctx context.Context, id string, req *CreateInstituteRequest) error {
	if req == nil {
		return shared.InvalidArgumentf("update payload is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	update := bson.M{}
	if req.Name != "" {
		update["name"] = req.Name
	}
	if req.Type != "" {
		if !shared.IsValidInstituteType(req.Type) {
			return shared.InvalidArgumentf("invalid institute type %q", req.Type)
		}
		update["type"] = req.Type
	}
	if req.Address != (shared.Address{}) {
		update["address"] = req.Address
	}
	if req.Contact != (shared.Contact{}) {
		update["contact"] = req.Contact
	}
	if req.Logo != "" {
		update["logo"] = req.Logo
	}
	if len(update) == 0 {
		return shared.InvalidArgumentf("nothing to update")
	}

	result, err := s.institutesCol.UpdateOne(queryCtx, bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		return shared.Internalf("failed to update institute: %v", err)
	}
	if result.MatchedCount == 0 {
		return shared.NotFoundf("institute %s not found", id)
	}
	return nil
}

// ============================================================================
// Class Management
// ============================================================================

// CreateClassRequest is the payload for class creation
type CreateClassRequest struct {
	ClassName      string `json:"className"`
	Year           int32  `json:"year"`
	Section        string `json:"section"`
	ClassTeacherID string `json:"classTeacherId"`
	InstituteID    string `json:"instituteId"`
}

// CreateClass registers a class and links it to its institute
func (s *Service) CreateClass(ctx context.Context, req *CreateClassRequest) (*shared.Class, error) {
	if req == nil || req.ClassName == "" || req.InstituteID == "" {
		return nil, shared.InvalidArgumentf("class name and institute id are required")
	}

	// Institute must exist before the class can hang off it
	count, err := shared.CountDocumentsWithTimeout(ctx, s.institutesCol, bson.M{"_id": req.InstituteID}, queryTimeout)
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	if count == 0 {
		return nil, shared.NotFoundf("institute %s not found", req.InstituteID)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	class := shared.Class{
		ID:             shared.GenerateClassID(),
		ClassName:      req.ClassName,
		Year:           req.Year,
		Section:        req.Section,
		ClassTeacherID: req.ClassTeacherID,
		StudentIDs:     []string{},
		InstituteID:    req.InstituteID,
		CreatedAt:      time.Now(),
	}

	if _, err := s.classesCol.InsertOne(queryCtx, class); err != nil {
		return nil, shared.Internalf("failed to create class: %v", err)
	}

	// Link back onto the institute
	_, err = s.institutesCol.UpdateOne(queryCtx,
		bson.M{"_id": req.InstituteID},
		bson.M{"$addToSet": bson.M{"classes": class.ID}},
	)
	if err != nil {
		log.Printf("Warning: failed to link class %s to institute %s: %v", class.ID, req.InstituteID, err)
	}

	return &class, nil
}

// GetClass fetches one class by ID
func (s *Service) GetClass(ctx context.Context, id string) (*shared.Class, error) {
	var class shared.Class
	err := shared.FindOneWithTimeout(ctx, s.classesCol, bson.M{"_id": id}, &class, queryTimeout)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, shared.NotFoundf("class %s not found", id)
		}
		return nil, shared.Internalf("database error: %v", err)
	}
	return &class, nil
}

// ListClassesByInstitute returns every class under an institute
func (s *Service) ListClassesByInstitute(ctx context.Context, instituteID string) ([]shared.Class, error) {
	if instituteID == "" {
		return nil, shared.InvalidArgumentf("institute id is required")
	}
	return s.findClasses(ctx, bson.M{"institute_id": instituteID})
}

// ListInchargeClasses returns the classes a teacher is responsible for
func (s *Service) ListInchargeClasses(ctx context.Context, teacherID string) ([]shared.Class, error) {
	if teacherID == "" {
		return nil, shared.InvalidArgumentf("teacher id is required")
	}
	return s.findClasses(ctx, bson.M{"class_teacher_id": teacherID})
}

// AssignClassTeacher sets or replaces the incharge of a class
func (s *Service) AssignClassTeacher(ctx context.Context, classID, teacherID string) error {
	if classID == "" || teacherID == "" {
		return shared.InvalidArgumentf("class id and teacher id are required")
	}

	var teacher shared.User
	if err := shared.FindOneWithTimeout(ctx, s.usersCol, bson.M{"_id": teacherID}, &teacher, queryTimeout); err != nil {
		return shared.NotFoundf("teacher %s not found", teacherID)
	}
	if teacher.Role != shared.RoleIncharge {
		return shared.InvalidArgumentf("user %s is not an incharge", teacherID)
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.classesCol.UpdateOne(queryCtx,
		bson.M{"_id": classID},
		bson.M{"$set": bson.M{"class_teacher_id": teacherID}},
	)
	if err != nil {
		return shared.Internalf("failed to assign class teacher: %v", err)
	}
	if result.MatchedCount == 0 {
		return shared.NotFoundf("class %s not found", classID)
	}
	return nil
}

func (s *Service) findClasses(ctx context.Context, filter bson.M) ([]shared.Class, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.classesCol.Find(queryCtx, filter, shared.BuildFindOptions(0, "class_name", 1))
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	defer cursor.Close(queryCtx)

	var classes []shared.Class
	if err := cursor.All(queryCtx, &classes); err != nil {
		return nil, shared.Internalf("failed to decode classes: %v", err)
	}
	return classes, nil
}

// ============================================================================
// User Directory
// ============================================================================

// ListUsers returns all user accounts, password hashes excluded from JSON
// by the model tags
func (s *Service) ListUsers(ctx context.Context) ([]shared.User, error) {
	return s.findUsers(ctx, bson.M{})
}

// ListUsersByInstitution returns the accounts attached to one institution
func (s *Service) ListUsersByInstitution(ctx context.Context, institutionID string) ([]shared.User, error) {
	if institutionID == "" {
		return nil, shared.InvalidArgumentf("institution id is required")
	}
	return s.findUsers(ctx, bson.M{"institution_id": institutionID})
}

// ListIncharges returns the incharge accounts for an institution, for
// class-teacher assignment pickers
func (s *Service) ListIncharges(ctx context.Context, institutionID string) ([]shared.User, error) {
	if institutionID == "" {
		return nil, shared.InvalidArgumentf("institution id is required")
	}
	return s.findUsers(ctx, bson.M{"institution_id": institutionID, "role": shared.RoleIncharge})
}

// SetUserActive flips an account's active flag
func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) error {
	if userID == "" {
		return shared.InvalidArgumentf("user id is required")
	}

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := s.usersCol.UpdateOne(queryCtx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now()}},
	)
	if err != nil {
		return shared.Internalf("failed to update user: %v", err)
	}
	if result.MatchedCount == 0 {
		return shared.NotFoundf("user %s not found", userID)
	}
	return nil
}

func (s *Service) findUsers(ctx context.Context, filter bson.M) ([]shared.User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := s.usersCol.Find(queryCtx, filter, shared.BuildFindOptions(0, "name", 1))
	if err != nil {
		return nil, shared.Internalf("database error: %v", err)
	}
	defer cursor.Close(queryCtx)

	var users []shared.User
	if err := cursor.All(queryCtx, &users); err != nil {
		return nil, shared.Internalf("failed to decode users: %v", err)
	}
	return users, nil
}
