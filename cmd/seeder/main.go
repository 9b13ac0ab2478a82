package main

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"markregister/internal/shared"
)

// Seed accounts and directory records for local development
const (
	AdminID     = "USR_seed-admin"
	PrincipalID = "USR_seed-principal"
	InchargeID  = "USR_seed-incharge"

	CommonPassword = "password"

	InstituteID = "INST_seed-ke"
	Class10AID  = "CLS_seed-10a"
	Class12BID  = "CLS_seed-12b"
)

func main() {
	log.Println("Starting Database Seeder...")

	shared.LoadEnv(".env")

	cfg, err := shared.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client, db, err := shared.ConnectMongoDB(&cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer shared.DisconnectMongoDB(client)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Drop all collections to ensure a clean start
	if err := db.Drop(ctx); err != nil {
		log.Fatalf("Failed to drop database: %v", err)
	}
	log.Println("Database cleared successfully.")

	if err := shared.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(CommonPassword), cfg.Security.BCryptCost)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}

	now := time.Now()

	// 1. Institute
	institute := shared.Institute{
		ID:            InstituteID,
		Name:          "Kendriya Excellence Institute",
		InstituteCode: "KE-01",
		Type:          shared.InstituteTypeSchool,
		Address:       shared.Address{Street: "14 Mall Road", City: "Jaipur", State: "Rajasthan", Pincode: "302001"},
		Contact:       shared.Contact{Phone: "0141-2550000", Email: "office@ke01.example.edu"},
		ClassIDs:      []string{Class10AID, Class12BID},
		CreatedAt:     now,
	}
	if _, err := db.Collection(shared.ColInstitutes).InsertOne(ctx, institute); err != nil {
		log.Fatalf("Failed to seed institute: %v", err)
	}

	// 2. Users
	users := []shared.User{
		{ID: AdminID, Username: "admin", Name: "System Admin", Role: shared.RoleAdmin, IsActive: true},
		{ID: PrincipalID, Username: "principal", Name: "R. Sharma", Role: shared.RolePrincipal, InstitutionID: InstituteID, IsActive: true},
		{ID: InchargeID, Username: "incharge", Name: "M. Verma", Role: shared.RoleIncharge, InstitutionID: InstituteID, IsActive: true},
	}
	for i := range users {
		users[i].PasswordHash = string(hash)
		users[i].CreatedAt = now
		if _, err := db.Collection(shared.ColUsers).InsertOne(ctx, users[i]); err != nil {
			log.Fatalf("Failed to seed user %s: %v", users[i].Username, err)
		}
	}

	// 3. Classes
	classes := []shared.Class{
		{ID: Class10AID, ClassName: "10-A", Year: 2026, Section: "A", ClassTeacherID: InchargeID, StudentIDs: []string{}, InstituteID: InstituteID, CreatedAt: now},
		{ID: Class12BID, ClassName: "12-B", Year: 2026, Section: "B", StudentIDs: []string{}, InstituteID: InstituteID, CreatedAt: now},
	}
	for _, class := range classes {
		if _, err := db.Collection(shared.ColClasses).InsertOne(ctx, class); err != nil {
			log.Fatalf("Failed to seed class %s: %v", class.ClassName, err)
		}
	}

	log.Printf("Seeded 1 institute, %d users, %d classes.", len(users), len(classes))
	log.Printf("All seed accounts use password %q.", CommonPassword)
	log.Println("Seeding complete.")
}
