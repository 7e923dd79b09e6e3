package session

import (
	"fmt"
	"html"
	"strings"

	"github.com/victornm/quizbot/internal/domain"
	"github.com/victornm/quizbot/internal/scoring"
)

const (
	msgHelp = `Halo! Saya adalah bot latihan bahasa Inggris kamu. Berikut adalah perintah yang bisa kamu gunakan:

📖 /latihan - Mulai latihan soal acak.
🎯 /tema [nama_tema] - Latihan soal berdasarkan tema tertentu (contoh: /tema makanan, /tema travel, /tema dasar).
📅 /daily - Ikuti tantangan harian (5 soal berurutan).
📊 /status - Cek progres, XP, dan level kamu.
❓ /help - Menampilkan daftar perintah ini.

Semoga berhasil!`

	msgNoQuestions        = "Maaf, belum ada soal tersedia untuk latihan saat ini. Silakan coba lagi nanti."
	msgNoQuestionsTheme   = "Maaf, belum ada soal untuk tema <b>%s</b>. Coba tema lain, misalnya: %s."
	msgInsufficientPool   = "Maaf, soal yang tersedia belum cukup untuk tantangan harian (butuh %d soal). Silakan coba lagi nanti atau gunakan /latihan."
	msgAlreadyDoneToday   = "Kamu sudah menyelesaikan tantangan harian hari ini. 🎉 Kembali lagi besok, atau gunakan /latihan untuk latihan tambahan."
	msgDailyInProgress    = "Kamu sedang mengikuti tantangan harian (soal %d/%d). Selesaikan dulu dengan menjawab a, b, c, atau d."
	msgDailyReplacesSolo  = "Soal latihan sebelumnya dibatalkan karena tantangan harian dimulai."
	msgInvalidAnswer      = "Jawaban tidak valid. Ketik salah satu huruf: a, b, c, atau d."
	msgNoActiveSession    = "Kamu belum memulai latihan. Ketik /latihan untuk soal acak atau /daily untuk tantangan harian."
	msgSessionExpired     = "Soal yang sedang kamu kerjakan sudah tidak tersedia. Sesi berakhir, silakan mulai lagi dengan /latihan."
	msgSessionAborted     = "Soal tantangan harian sudah tidak tersedia, jadi tantangan dihentikan. Silakan mulai lagi dengan /daily."
	msgThemeRequired      = "Tulis nama tema setelah perintah, contoh: /tema makanan."
	msgThemesAvailable    = "Tema yang tersedia: %s."
	msgUnknownCommand     = "Perintah %s tidak dikenal. Ketik /help untuk melihat perintah yang tersedia."
	msgInternalError      = "Maaf, terjadi kesalahan internal. Silakan coba lagi nanti."
	msgWelcome            = "Halo, %s! Selamat datang di bot latihan bahasa Inggris. Ketik /help untuk melihat perintah yang tersedia."
	msgWelcomeBack        = "Selamat datang kembali, %s! Ketik /help untuk melihat perintah yang tersedia."
	msgAnswerInstructions = "Ketik jawaban Anda (a, b, c, atau d)."
)

func renderQuestion(q domain.Question, position int) string {
	var b strings.Builder

	if position > 0 {
		fmt.Fprintf(&b, "📅 <b>Tantangan Harian %d/%d</b>\n\n", position, domain.DailyLength)
	}

	fmt.Fprintf(&b, "<b>Pertanyaan:</b>\n%s\n\n<b>Pilihan Jawaban:</b>\n", html.EscapeString(q.Prompt))
	for i, o := range q.Options {
		fmt.Fprintf(&b, "%s. %s\n", scoring.OptionLetter(i), html.EscapeString(o))
	}

	b.WriteString("\n")
	b.WriteString(msgAnswerInstructions)
	return b.String()
}

func renderFeedback(q domain.Question, correct bool, before, after domain.User) string {
	var b strings.Builder

	if correct {
		fmt.Fprintf(&b, "✅ <b>Benar!</b> +%d XP\n", scoring.XPPerCorrect)
	} else {
		fmt.Fprintf(&b, "❌ <b>Kurang tepat.</b> Jawaban yang benar: <b>%s. %s</b>\n",
			scoring.OptionLetter(q.AnswerIndex), html.EscapeString(q.Options[q.AnswerIndex]))
	}

	if q.Explanation != "" {
		fmt.Fprintf(&b, "\n💡 %s\n", html.EscapeString(q.Explanation))
	}

	fmt.Fprintf(&b, "\nXP: %d | Level: %d", after.XP, after.Level)
	if after.Level > before.Level {
		fmt.Fprintf(&b, "\n🎉 Selamat, kamu naik ke level %d!", after.Level)
	}

	return b.String()
}

func renderDailySummary(res domain.DailyResult, u domain.User) string {
	return fmt.Sprintf("🏁 <b>Tantangan harian selesai!</b>\nBenar: %d/%d\nXP didapat: %d\nTotal XP: %d | Level: %d\n\nSampai jumpa besok!",
		res.Correct, res.Answered, res.Correct*scoring.XPPerCorrect, u.XP, u.Level)
}

func renderStatus(u domain.User, doneToday bool) string {
	var b strings.Builder

	name := u.DisplayName
	if name == "" {
		name = "kamu"
	}

	fmt.Fprintf(&b, "📊 <b>Progres %s</b>\n", html.EscapeString(name))
	fmt.Fprintf(&b, "Level: %d\n", scoring.LevelFor(u.XP))
	fmt.Fprintf(&b, "XP: %d (%d XP lagi ke level %d)\n", u.XP, scoring.XPToNextLevel(u.XP), scoring.LevelFor(u.XP)+1)
	fmt.Fprintf(&b, "Jawaban benar: %d\n", u.CorrectCount)
	fmt.Fprintf(&b, "Jawaban salah: %d\n", u.WrongCount)
	fmt.Fprintf(&b, "Akurasi: %s%%\n", scoring.Accuracy(u.CorrectCount, u.WrongCount).String())

	switch {
	case u.Session.Mode() == domain.ModeDaily:
		fmt.Fprintf(&b, "Tantangan harian: sedang berjalan (soal %d/%d)", u.Session.DailyIndex()+1, domain.DailyLength)
	case doneToday:
		b.WriteString("Tantangan harian: sudah selesai hari ini ✅")
	default:
		b.WriteString("Tantangan harian: tersedia, ketik /daily")
	}

	if u.Session.Mode() == domain.ModeSingle {
		b.WriteString("\nAda soal latihan yang menunggu jawabanmu.")
	}

	return b.String()
}

func renderThemes(themes []string) string {
	if len(themes) == 0 {
		return ""
	}

	return fmt.Sprintf(msgThemesAvailable, joinThemes(themes))
}

func renderUnknownCommand(name string) string {
	return fmt.Sprintf(msgUnknownCommand, html.EscapeString(name))
}

func renderNoQuestionsForTheme(theme string, themes []string) string {
	return fmt.Sprintf(msgNoQuestionsTheme, html.EscapeString(domain.NormalizeTheme(theme)), joinThemes(themes))
}

func joinThemes(themes []string) string {
	return html.EscapeString(strings.Join(themes, ", "))
}
