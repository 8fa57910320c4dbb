package repo

import (
	"context"
	"database/sql"

	"taskhub/internal/domain"
)

const userColumns = `id,email,username,first_name,last_name,password_hash,avatar,is_verified,is_active,otp,otp_expires_at,refresh_token,created_at,updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var avatar, otp, otpExpires, refresh sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
		&avatar, &u.IsVerified, &u.IsActive, &otp, &otpExpires, &refresh, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	u.Avatar = strPtr(avatar)
	u.OTP = strPtr(otp)
	u.OTPExpiresAt = strPtr(otpExpires)
	u.RefreshToken = strPtr(refresh)
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO users(`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.Username, u.FirstName, u.LastName, u.PasswordHash,
		nullableStringPtr(u.Avatar), u.IsVerified, u.IsActive,
		nullableStringPtr(u.OTP), nullableStringPtr(u.OTPExpiresAt), nullableStringPtr(u.RefreshToken),
		u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, email))
}

// UserExists reports whether a user with the given email or username exists.
func (r Repo) UserExists(ctx context.Context, email, username string) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=? OR username=? LIMIT 1`, email, username)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// SetUserOTP stores a fresh one-time code and its expiry.
func (r Repo) SetUserOTP(ctx context.Context, userID, otp, expiresAt, now string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET otp=?, otp_expires_at=?, updated_at=? WHERE id=?`,
		otp, expiresAt, now, userID)
	return err
}

// MarkUserVerified flips the verified flag and clears OTP state.
func (r Repo) MarkUserVerified(ctx context.Context, userID, now string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET is_verified=1, otp=NULL, otp_expires_at=NULL, updated_at=? WHERE id=?`,
		now, userID)
	return err
}

func (r Repo) SetUserPassword(ctx context.Context, userID, passwordHash, now string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET password_hash=?, otp=NULL, otp_expires_at=NULL, updated_at=? WHERE id=?`,
		passwordHash, now, userID)
	return err
}

func (r Repo) SetUserRefreshToken(ctx context.Context, userID, token, now string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET refresh_token=?, updated_at=? WHERE id=?`,
		nullable(token), now, userID)
	return err
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.User
	for rows.Next() {
		var u domain.User
		var avatar, otp, otpExpires, refresh sql.NullString
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.PasswordHash,
			&avatar, &u.IsVerified, &u.IsActive, &otp, &otpExpires, &refresh, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Avatar = strPtr(avatar)
		u.OTP = strPtr(otp)
		u.OTPExpiresAt = strPtr(otpExpires)
		u.RefreshToken = strPtr(refresh)
		res = append(res, u)
	}
	return res, rows.Err()
}
