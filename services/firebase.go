package services

import (
	"context"
	"log"

	firebase "firebase.google.com/go"
	"firebase.google.com/go/auth"
	"firebase.google.com/go/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
)

// PhoneVerifier checks a Firebase phone-auth ID token.
type PhoneVerifier interface {
	VerifyPhoneToken(ctx context.Context, idToken string) (phone, uid string, err error)
}

// AccountDeleter removes the Firebase Auth record of a deleted user.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, uid string) error
}

// Firebase bundles the Firebase clients the services use.
type Firebase struct {
	Auth      *auth.Client
	Messaging *messaging.Client
}

// InitFirebase loads the service account at credentialsFile.
func InitFirebase(ctx context.Context, credentialsFile string) (*Firebase, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	log.Println("Firebase initialized")

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting firebase auth client")
	}
	messagingClient, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting firebase messaging client")
	}
	log.Println("Firebase Messaging client initialized")
	return &Firebase{Auth: authClient, Messaging: messagingClient}, nil
}

func (f *Firebase) VerifyPhoneToken(ctx context.Context, idToken string) (string, string, error) {
	token, err := f.Auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return "", "", errors.Wrap(err, "verifying firebase id token")
	}
	phone, _ := token.Claims["phone_number"].(string)
	if phone == "" {
		return "", "", errors.New("id token carries no phone number")
	}
	return phone, token.UID, nil
}

func (f *Firebase) DeleteAccount(ctx context.Context, uid string) error {
	if err := f.Auth.DeleteUser(ctx, uid); err != nil {
		return errors.Wrapf(err, "deleting firebase user %s", uid)
	}
	return nil
}
